package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "sourcemark/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// MarkerStyle selects how reference markers and the references section are
// rendered in rewritten documents.
type MarkerStyle string

const (
	StyleHTML     MarkerStyle = "html"
	StyleMarkdown MarkerStyle = "markdown"
	StylePlain    MarkerStyle = "plain"
)

// RewriteConfig holds settings for the rewrite stage.
type RewriteConfig struct {
	// DocsDir is the base directory for input documents (.md, .txt).
	DocsDir string `json:"docs_dir" yaml:"docs_dir"`

	// OutDir is the directory for rewritten documents.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// RefsDir is the base directory for reference output (contains extracted/).
	RefsDir string `json:"refs_dir" yaml:"refs_dir"`

	// Style selects the marker style: html, markdown, or plain.
	Style MarkerStyle `json:"style" yaml:"style"`

	// AppendReferences controls whether a references section is appended
	// to each rewritten document.
	AppendReferences bool `json:"append_references" yaml:"append_references"`
}

// RefsConfig holds settings for the reference index stage.
type RefsConfig struct {
	// RefsDir is the base directory for references (contains extracted/, index/).
	RefsDir string `json:"refs_dir" yaml:"refs_dir"`

	// OutDir is the directory holding rewritten documents, used to trace
	// a stored source back to its surrounding text.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// FetchConfig holds settings for downloading remote documents.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DocsDir is the directory fetched documents are written to.
	DocsDir string `json:"docs_dir" yaml:"docs_dir"`

	// MaxRetries is the number of retry attempts on rate-limited responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}
