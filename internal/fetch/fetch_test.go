// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/sourcemark/pkg/types"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"markdown file", "https://example.com/docs/guide.md", "guide"},
		{"text file", "https://example.com/notes.txt", "notes"},
		{"no extension", "https://example.com/readme", "readme"},
		{"nested path", "https://example.com/a/b/c/post.md", "post"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slug(tt.url); got != tt.want {
				t.Errorf("slug(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSlugFallsBackToHash(t *testing.T) {
	got := slug("https://example.com/")
	if !strings.HasPrefix(got, "url-") {
		t.Errorf("slug = %q, want url- prefix", got)
	}
	if got != slug("https://example.com/") {
		t.Error("hash slug should be deterministic")
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/notes.txt", ".txt"},
		{"https://example.com/guide.md", ".md"},
		{"https://example.com/readme", ".md"},
		{"https://example.com/page.html", ".md"},
	}

	for _, tt := range tests {
		if got := ext(tt.url); got != tt.want {
			t.Errorf("ext(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestTextContent(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/plain", true},
		{"text/markdown; charset=utf-8", true},
		{"application/markdown", true},
		{"", true},
		{"application/pdf", false},
		{"image/png", false},
	}

	for _, tt := range tests {
		if got := textContent(tt.contentType); got != tt.want {
			t.Errorf("textContent(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestDocumentDownloads(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		w.Write([]byte("# Remote Guide\n\nSome claim. Source: a nice book.\n"))
	}))
	defer ts.Close()

	cfg := types.FetchConfig{DocsDir: t.TempDir()}
	var buf strings.Builder

	docPath, skipped, err := Document(context.Background(), ts.Client(), ts.URL+"/guide.md", cfg, &buf)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if skipped {
		t.Error("first download should not be skipped")
	}
	if filepath.Base(docPath) != "guide.md" {
		t.Errorf("docPath = %q, want guide.md basename", docPath)
	}

	data, err := os.ReadFile(docPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Remote Guide") {
		t.Errorf("downloaded content = %q", string(data))
	}
}

func TestDocumentSkipsExisting(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte("remote content"))
	}))
	defer ts.Close()

	docsDir := t.TempDir()
	existing := filepath.Join(docsDir, "guide.md")
	if err := os.WriteFile(existing, []byte("local content"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := types.FetchConfig{DocsDir: docsDir}
	var buf strings.Builder

	docPath, skipped, err := Document(context.Background(), ts.Client(), ts.URL+"/guide.md", cfg, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if !skipped {
		t.Error("existing document should be skipped")
	}
	if calls != 0 {
		t.Errorf("server called %d times, want 0", calls)
	}

	data, _ := os.ReadFile(docPath)
	if string(data) != "local content" {
		t.Error("existing file should not be overwritten")
	}
}

func TestDocumentRejectsNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	cfg := types.FetchConfig{DocsDir: t.TempDir()}
	var buf strings.Builder

	_, _, err := Document(context.Background(), ts.Client(), ts.URL+"/missing.md", cfg, &buf)
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("err = %v, want HTTP 404", err)
	}
}

func TestDocumentRejectsBinaryContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer ts.Close()

	cfg := types.FetchConfig{DocsDir: t.TempDir()}
	var buf strings.Builder

	_, _, err := Document(context.Background(), ts.Client(), ts.URL+"/paper.md", cfg, &buf)
	if err == nil || !strings.Contains(err.Error(), "unsupported content type") {
		t.Errorf("err = %v, want unsupported content type", err)
	}
}

func TestDocumentsBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "bad") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("content"))
	}))
	defer ts.Close()

	cfg := types.FetchConfig{DocsDir: t.TempDir()}
	var buf strings.Builder

	urls := []string{
		ts.URL + "/one.md",
		ts.URL + "/two.txt",
		ts.URL + "/bad.md",
	}
	result, err := Documents(context.Background(), ts.Client(), urls, cfg, &buf)
	if err != nil {
		t.Fatal(err)
	}

	if result.Downloaded != 2 {
		t.Errorf("Downloaded = %d, want 2", result.Downloaded)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if result.Total() != 3 {
		t.Errorf("Total = %d, want 3", result.Total())
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if !strings.Contains(buf.String(), "downloaded: 2, skipped: 0, failed: 1") {
		t.Errorf("summary line missing: %s", buf.String())
	}
}
