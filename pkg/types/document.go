// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SourceRef is one citation extracted from a document, carrying the global
// 1-based reference number it was assigned during the rewrite.
type SourceRef struct {
	// Num is the reference number substituted into the rewritten text.
	Num int `json:"num" yaml:"num"`

	// Text is the citation payload as stored by the extractor
	// (the portion after the colon, with closing parentheses removed).
	Text string `json:"text" yaml:"text"`

	// Context is the surrounding text where the citation appeared.
	Context string `json:"context" yaml:"context"`
}

// RewriteResult holds the output of rewriting a single document.
type RewriteResult struct {
	// DocID identifies the source document (its base name without extension).
	DocID string `json:"doc_id" yaml:"doc_id"`

	// Title is the document title taken from its first Markdown heading,
	// or empty when the document has none.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// RewrittenPath is where the marker-substituted document was written.
	RewrittenPath string `json:"rewritten_path" yaml:"rewritten_path"`

	// Sources lists every citation extracted from the document, in
	// discovery order.
	Sources []SourceRef `json:"sources" yaml:"sources"`

	// Error records a rewrite failure message. Empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
