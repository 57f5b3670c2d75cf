// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads remote text documents into the local docs
// directory so they can be rewritten.
package fetch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/sourcemark/internal/httputil"
	"github.com/pdiddy/sourcemark/pkg/types"
)

const defaultExt = ".md"

// BatchResult holds the outcome of a batch fetch run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Total returns the total number of URLs processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any downloads failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Documents downloads each URL into cfg.DocsDir, writing per-URL progress
// to w. Failures are reported in the result rather than aborting the batch.
func Documents(ctx context.Context, client *http.Client, urls []string, cfg types.FetchConfig, w io.Writer) (BatchResult, error) {
	var result BatchResult

	for _, rawURL := range urls {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		docPath, skipped, err := Document(ctx, client, rawURL, cfg, w)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed  %s: %v\n", rawURL, err)
			result.Failed++
		case skipped:
			result.Skipped++
		default:
			fmt.Fprintf(w, "fetched %s -> %s\n", rawURL, docPath)
			result.Downloaded++
		}
	}

	fmt.Fprintf(w, "\ndownloaded: %d, skipped: %d, failed: %d\n",
		result.Downloaded, result.Skipped, result.Failed)

	return result, nil
}

// Document downloads a single URL into cfg.DocsDir and returns the local
// path. When the destination file already exists the download is skipped.
// Responses that are not 2xx or not text are rejected.
func Document(ctx context.Context, client *http.Client, rawURL string, cfg types.FetchConfig, w io.Writer) (docPath string, skipped bool, err error) {
	docPath = filepath.Join(cfg.DocsDir, slug(rawURL)+ext(rawURL))

	if _, err := os.Stat(docPath); err == nil {
		fmt.Fprintf(w, "skipped %s (already exists)\n", docPath)
		return docPath, true, nil
	}

	if err := os.MkdirAll(cfg.DocsDir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating docs directory: %w", err)
	}

	resp, err := httputil.GetWithRetry(ctx, client, rawURL, cfg.UserAgent, cfg.MaxRetries)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	if ct := resp.Header.Get("Content-Type"); !textContent(ct) {
		return "", false, fmt.Errorf("unsupported content type %q from %s", ct, rawURL)
	}

	// Download to a temp file, rename on success.
	tmpFile, err := os.CreateTemp(cfg.DocsDir, ".fetch-*.tmp")
	if err != nil {
		return "", false, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", false, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", false, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, docPath); err != nil {
		os.Remove(tmpPath)
		return "", false, fmt.Errorf("renaming temp file: %w", err)
	}
	return docPath, false, nil
}

// textContent accepts text/* media types and the common markdown type.
// An absent Content-Type is accepted since many static hosts omit it.
func textContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/markdown"
}

// slug returns a filesystem-safe filename stem for the URL.
func slug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return hashSlug(rawURL)
	}
	base := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
	if base == "" || base == "." || base == "/" {
		return hashSlug(rawURL)
	}
	return base
}

func hashSlug(rawURL string) string {
	return fmt.Sprintf("url-%x", sha256.Sum256([]byte(rawURL)))[:16]
}

// ext keeps a .txt extension from the URL path; everything else is
// saved as markdown.
func ext(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExt
	}
	if path.Ext(u.Path) == ".txt" {
		return ".txt"
	}
	return defaultExt
}
