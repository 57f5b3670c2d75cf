// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sourcemark/internal/rewrite"
	"github.com/pdiddy/sourcemark/pkg/types"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [files...]",
	Short: "Replace inline citations with numbered reference markers",
	Long: `Rewrite scans documents for inline "Source: ..." citations, replaces
each with a numbered reference marker, and appends a references section.
Extracted sources are written as YAML artifacts for later indexing.

Pass document paths as arguments, or --batch to process every document
in the docs directory. Unchanged documents are skipped.`,
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().Bool("batch", false, "process all documents in docs-dir")
	rewriteCmd.Flags().String("style", "", "marker style: html, markdown, or plain (default markdown)")
	rewriteCmd.Flags().String("docs-dir", "docs", "directory of input documents")
	rewriteCmd.Flags().String("out-dir", "out", "directory for rewritten documents")
	rewriteCmd.Flags().String("refs-dir", "refs", "base directory for reference artifacts (contains extracted/, index/)")
	rewriteCmd.Flags().Bool("no-references", false, "do not append a references section")

	rootCmd.AddCommand(rewriteCmd)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	batch, _ := cmd.Flags().GetBool("batch")
	if len(args) == 0 && !batch {
		return fmt.Errorf("provide document paths or --batch")
	}

	styleFlag, _ := cmd.Flags().GetString("style")
	if styleFlag == "" {
		styleFlag = viper.GetString("rewrite.style")
	}
	style, err := rewrite.ParseStyle(styleFlag)
	if err != nil {
		return err
	}

	docsDir, _ := cmd.Flags().GetString("docs-dir")
	outDir, _ := cmd.Flags().GetString("out-dir")
	refsDir, _ := cmd.Flags().GetString("refs-dir")
	noRefs, _ := cmd.Flags().GetBool("no-references")

	cfg := types.RewriteConfig{
		DocsDir:          docsDir,
		OutDir:           outDir,
		RefsDir:          refsDir,
		Style:            style,
		AppendReferences: !noRefs,
	}

	var summary rewrite.BatchSummary
	if batch {
		summary, err = rewrite.RewriteAll(cfg, os.Stdout)
	} else {
		summary, err = rewrite.RewriteFiles(args, cfg, os.Stdout)
	}
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d document(s) failed rewriting", summary.Failed)
	}
	return nil
}
