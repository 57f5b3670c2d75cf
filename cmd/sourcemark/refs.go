// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sourcemark/internal/refs"
	"github.com/pdiddy/sourcemark/pkg/types"
)

var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Manage the reference index (store, retrieve, export)",
	Long: `Refs manages a local SQLite index built from the source artifacts that
rewrite produces. Use subcommands to index sources, query them, or export.`,
}

// --- store subcommand ---

var refsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest extracted sources into the reference index",
	Long: `Store reads source YAML artifacts from refs/extracted/, ingests them
into a SQLite database with FTS5 indexing, and writes an export file.
Unchanged documents are skipped on subsequent runs.`,
	RunE: runRefsStore,
}

func runRefsStore(cmd *cobra.Command, args []string) error {
	cfg := refsConfig(cmd)

	store, err := refs.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d document(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var refsRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the reference index with full-text search and filters",
	Long: `Retrieve searches stored sources using FTS5 full-text search,
structured filters (document, reference number), or a combination.
Results include the document and passage each source was cited from.

Use --trace with a source ID to view the passage carrying its marker.`,
	RunE: runRefsRetrieve,
}

func runRefsRetrieve(cmd *cobra.Command, args []string) error {
	traceID, _ := cmd.Flags().GetString("trace")

	cfg := refsConfig(cmd)
	store, err := refs.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Trace mode: show the citing passage for a specific source.
	if traceID != "" {
		text, err := store.Trace(context.Background(), traceID)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --doc, or --num")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func formatRetrieveOutput(results []refs.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-4s  %-50s  %-20s\n",
		"ID", "Num", "Source", "Document")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 92))

	for _, r := range results {
		text := r.Text
		if len(text) > 50 {
			text = text[:47] + "..."
		}
		doc := r.DocID
		if len(doc) > 20 {
			doc = doc[:17] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-12s  %-4d  %-50s  %-20s\n",
			r.ID, r.Num, text, doc)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var refsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the reference index to YAML or JSON",
	Long: `Export writes the full reference index (or a filtered subset) to
refs/index/export.yaml or export.json. Supports the same filter flags
as retrieve for partial exports.`,
	RunE: runRefsExport,
}

func runRefsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg := refsConfig(cmd)
	store, err := refs.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to refs/index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to refs/index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func refsConfig(cmd *cobra.Command) types.RefsConfig {
	refsDir, _ := cmd.Flags().GetString("refs-dir")
	if refsDir == "" {
		refsDir = "refs"
	}
	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		outDir = "out"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.RefsConfig{
		RefsDir:    refsDir,
		OutDir:     outDir,
		MaxResults: maxResults,
	}
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) refs.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	docID, _ := cmd.Flags().GetString("doc")
	num, _ := cmd.Flags().GetInt("num")
	limit, _ := cmd.Flags().GetInt("limit")

	return refs.QueryOptions{
		Query:      queryText,
		DocID:      docID,
		Num:        num,
		MaxResults: limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	refsCmd.PersistentFlags().String("refs-dir", "refs", "base directory for reference artifacts (contains extracted/, index/)")
	refsCmd.PersistentFlags().String("out-dir", "out", "directory of rewritten documents")
	refsCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Retrieve flags.
	refsRetrieveCmd.Flags().String("query", "", "full-text search query")
	refsRetrieveCmd.Flags().String("doc", "", "filter by document ID")
	refsRetrieveCmd.Flags().Int("num", 0, "filter by reference number")
	refsRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	refsRetrieveCmd.Flags().String("trace", "", "show the citing passage for a source ID")
	refsRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	refsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	refsExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	refsExportCmd.Flags().String("doc", "", "filter by document ID for partial export")
	refsExportCmd.Flags().Int("num", 0, "filter by reference number for partial export")
	refsExportCmd.Flags().Int("limit", 0, "maximum sources to export (0 = all)")

	// Wire subcommands.
	refsCmd.AddCommand(refsStoreCmd)
	refsCmd.AddCommand(refsRetrieveCmd)
	refsCmd.AddCommand(refsExportCmd)

	rootCmd.AddCommand(refsCmd)
}
