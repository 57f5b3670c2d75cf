// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/sourcemark/pkg/types"
)

// QueryOptions holds parameters for reference index queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over source text.
	Query string

	// DocID filters by document.
	DocID string

	// Num filters by reference number within a document (0 = no filter).
	Num int

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.DocID == "" && q.Num == 0
}

// QueryResult is a stored source with its document metadata.
type QueryResult struct {
	types.SourceRef
	ID       string `json:"id" yaml:"id"`
	DocID    string `json:"doc_id" yaml:"doc_id"`
	DocTitle string `json:"doc_title" yaml:"doc_title"`
}

// Retrieve queries the reference index with optional full-text search and
// structured filters. Results are ranked by relevance for full-text queries
// or sorted by document and reference number otherwise.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT src.id, src.ref_num, src.text, src.context, src.doc_id,
				d.title, sources_fts.rank
			FROM sources_fts
			JOIN sources src ON src.rowid = sources_fts.rowid
			LEFT JOIN documents d ON src.doc_id = d.id
			WHERE sources_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT src.id, src.ref_num, src.text, src.context, src.doc_id,
				d.title, 0 AS rank
			FROM sources src
			LEFT JOIN documents d ON src.doc_id = d.id
			WHERE 1=1`)
	}

	if opts.DocID != "" {
		qb.WriteString(` AND src.doc_id = ?`)
		args = append(args, opts.DocID)
	}

	if opts.Num > 0 {
		qb.WriteString(` AND src.ref_num = ?`)
		args = append(args, opts.Num)
	}

	if useFTS {
		qb.WriteString(` ORDER BY sources_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY src.doc_id, src.ref_num`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying reference index: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr       QueryResult
			srcCtx   sql.NullString
			docTitle sql.NullString
			rank     float64
		)

		if err := rows.Scan(
			&qr.ID, &qr.Num, &qr.Text, &srcCtx, &qr.DocID,
			&docTitle, &rank,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if srcCtx.Valid {
			qr.Context = srcCtx.String
		}
		if docTitle.Valid {
			qr.DocTitle = docTitle.String
		}

		results = append(results, qr)
	}

	return results, rows.Err()
}

// Trace returns the passage surrounding a stored source's reference marker
// in the rewritten document. When the rewritten document cannot be read or
// the marker is not found, the context captured at rewrite time is returned
// instead.
func (s *Store) Trace(ctx context.Context, sourceID string) (string, error) {
	var (
		refNum        int
		storedContext sql.NullString
		rewrittenPath sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT src.ref_num, src.context, d.rewritten_path
		 FROM sources src
		 LEFT JOIN documents d ON src.doc_id = d.id
		 WHERE src.id = ?`, sourceID,
	).Scan(&refNum, &storedContext, &rewrittenPath)

	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("source %s not found", sourceID)
		}
		return "", fmt.Errorf("looking up source: %w", err)
	}

	if rewrittenPath.Valid {
		content, readErr := os.ReadFile(rewrittenPath.String)
		if readErr != nil && s.outDir != "" {
			// The stored path may be stale; retry against the current out dir.
			content, readErr = os.ReadFile(filepath.Join(s.outDir, filepath.Base(rewrittenPath.String)))
		}
		if readErr == nil {
			if line := markerLine(string(content), refNum); line != "" {
				return line, nil
			}
		}
	}

	return storedContext.String, nil
}

// markerLine finds the first line containing a reference marker for refNum
// in any of the rewrite styles.
func markerLine(content string, refNum int) string {
	markers := []string{
		fmt.Sprintf("<sup>%d</sup>", refNum),
		fmt.Sprintf("[^%d]", refNum),
		fmt.Sprintf("[%d]", refNum),
	}

	for _, line := range strings.Split(content, "\n") {
		for _, marker := range markers {
			if strings.Contains(line, marker) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}
