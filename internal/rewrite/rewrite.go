// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rewrite turns documents with inline "Source:" citations into
// marker-substituted documents plus per-document reference artifacts.
package rewrite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sourcemark/internal/sources"
	"github.com/pdiddy/sourcemark/pkg/types"
)

const extractedDir = "extracted"

// docExts lists the input file extensions the batch walk accepts.
var docExts = map[string]bool{
	".md":  true,
	".txt": true,
}

// BatchSummary holds counts from a batch rewrite run.
type BatchSummary struct {
	Rewritten int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Rewritten + s.Skipped + s.Failed
}

// HasFailures reports whether any documents failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// RewriteAll processes every document in cfg.DocsDir, writing rewritten
// documents to cfg.OutDir and reference artifacts to cfg.RefsDir/extracted/.
// Documents unchanged since their last rewrite are skipped.
func RewriteAll(cfg types.RewriteConfig, w io.Writer) (BatchSummary, error) {
	entries, err := os.ReadDir(cfg.DocsDir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading documents directory %s: %w", cfg.DocsDir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !docExts[filepath.Ext(entry.Name())] {
			continue
		}
		paths = append(paths, filepath.Join(cfg.DocsDir, entry.Name()))
	}

	return RewriteFiles(paths, cfg, w)
}

// RewriteFiles rewrites the given documents one by one. Each document gets
// its own extractor, so reference numbering restarts at 1 per document and
// each rewritten document carries its own references section.
func RewriteFiles(paths []string, cfg types.RewriteConfig, w io.Writer) (BatchSummary, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}
	refsDir := filepath.Join(cfg.RefsDir, extractedDir)
	if err := os.MkdirAll(refsDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating references directory: %w", err)
	}

	var summary BatchSummary

	for _, docPath := range paths {
		docID := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
		refsPath := filepath.Join(refsDir, docID+"-sources.yaml")

		changed, err := hasChanged(docPath, refsPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}
		if !changed {
			fmt.Fprintf(w, "skipped %s\n", docID)
			summary.Skipped++
			continue
		}

		result, err := rewriteOne(docPath, docID, cfg)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", docID, err)
			summary.Failed++
			continue
		}

		if err := writeResult(refsPath, result); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", docID, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "rewrote %s (%d sources)\n", docID, len(result.Sources))
		summary.Rewritten++
	}

	return summary, nil
}

// rewriteOne reads, rewrites, and writes a single document, returning the
// artifact to persist alongside it.
func rewriteOne(docPath, docID string, cfg types.RewriteConfig) (*types.RewriteResult, error) {
	content, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", docPath, err)
	}

	ex := sources.NewExtractor()
	rewritten, refs := RewriteText(ex, string(content), cfg.Style)
	if cfg.AppendReferences {
		rewritten += ReferencesSection(ex, cfg.Style)
	}

	outPath := filepath.Join(cfg.OutDir, filepath.Base(docPath))
	if err := os.WriteFile(outPath, []byte(rewritten), 0o644); err != nil {
		return nil, fmt.Errorf("writing rewritten document: %w", err)
	}

	return &types.RewriteResult{
		DocID:         docID,
		Title:         docTitle(string(content)),
		RewrittenPath: outPath,
		Sources:       refs,
	}, nil
}

// RewriteText rewrites content through ex using the style's marker and
// returns the rewritten text together with the SourceRefs added by this
// call. Numbering continues from whatever ex has already accumulated.
func RewriteText(ex *sources.Extractor, content string, style types.MarkerStyle) (string, []types.SourceRef) {
	base := ex.Count()
	matches := sources.CitationPattern.FindAllStringIndex(content, -1)

	rewritten := ex.Parse(content, Marker(style))

	table := ex.Sources()
	refs := make([]types.SourceRef, 0, len(matches))
	for i, m := range matches {
		refs = append(refs, types.SourceRef{
			Num:     base + i + 1,
			Text:    table[base+i],
			Context: extractContext(content, m[0], m[1]),
		})
	}
	return rewritten, refs
}

// extractContext returns a snippet of surrounding text around a citation.
// It takes up to 40 characters before and after the match boundaries,
// trimmed to word boundaries.
func extractContext(text string, start, end int) string {
	const window = 40
	ctxStart := start - window
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + window
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	snippet := text[ctxStart:ctxEnd]
	if ctxStart > 0 {
		if i := strings.IndexByte(snippet, ' '); i >= 0 && i < window {
			snippet = snippet[i+1:]
		}
	}
	if ctxEnd < len(text) {
		if i := strings.LastIndexByte(snippet, ' '); i >= 0 && i > len(snippet)-window {
			snippet = snippet[:i]
		}
	}
	return strings.TrimSpace(snippet)
}

// docTitle returns the text of the first Markdown H1 heading, or "".
func docTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return ""
}

// hasChanged reports whether the document is newer than its reference
// artifact. Returns true if the artifact does not exist.
func hasChanged(docPath, refsPath string) (bool, error) {
	docInfo, err := os.Stat(docPath)
	if err != nil {
		return false, fmt.Errorf("stat document %s: %w", docPath, err)
	}

	refsInfo, err := os.Stat(refsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat artifact %s: %w", refsPath, err)
	}

	return docInfo.ModTime().After(refsInfo.ModTime()), nil
}

// writeResult marshals the RewriteResult to a YAML file.
func writeResult(path string, result *types.RewriteResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
