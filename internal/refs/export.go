// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds a stored source with document metadata for export.
type ExportEntry struct {
	ID      string     `json:"id" yaml:"id"`
	Num     int        `json:"num" yaml:"num"`
	Text    string     `json:"text" yaml:"text"`
	DocID   string     `json:"doc_id" yaml:"doc_id"`
	Context string     `json:"context,omitempty" yaml:"context,omitempty"`
	Doc     *ExportDoc `json:"doc,omitempty" yaml:"doc,omitempty"`
}

// ExportDoc holds the document-level fields included in each export entry.
type ExportDoc struct {
	Title string `json:"title" yaml:"title"`
}

const exportLimit = 100000

// ExportYAML writes the reference index to refs/index/export.yaml.
// It supports the same filters as Retrieve.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.refsDir, indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the reference index to refs/index/export.json.
// It supports the same filters as Retrieve.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.refsDir, indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = exportLimit
	}
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			ID:      r.ID,
			Num:     r.Num,
			Text:    r.Text,
			DocID:   r.DocID,
			Context: r.Context,
		}
		if r.DocTitle != "" {
			entries[i].Doc = &ExportDoc{Title: r.DocTitle}
		}
	}

	return entries, nil
}
