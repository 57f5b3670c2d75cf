// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"fmt"
	"html"

	"github.com/pdiddy/sourcemark/internal/sources"
	"github.com/pdiddy/sourcemark/pkg/types"
)

// ParseStyle validates a style name from a flag or config file.
func ParseStyle(s string) (types.MarkerStyle, error) {
	switch types.MarkerStyle(s) {
	case types.StyleHTML, types.StyleMarkdown, types.StylePlain:
		return types.MarkerStyle(s), nil
	case "":
		return types.StyleMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported style %q: use html, markdown, or plain", s)
	}
}

// Marker returns the reference formatter used in place of matched citations
// for the given style.
func Marker(style types.MarkerStyle) sources.ReferenceFormatter {
	switch style {
	case types.StyleHTML:
		return sources.HTMLReferenceFormat
	case types.StylePlain:
		return func(n int) string { return fmt.Sprintf(" [%d]", n) }
	default:
		// Markdown footnote marker, e.g. [^3].
		return func(n int) string { return fmt.Sprintf("[^%d]", n) }
	}
}

// listFormat returns the per-entry formatters and join delimiter used when
// rendering a references section for the given style.
func listFormat(style types.MarkerStyle) (sources.ReferenceFormatter, sources.SourceFormatter, string) {
	switch style {
	case types.StyleHTML:
		ref := func(n int) string { return fmt.Sprintf("<sup>%d</sup> ", n) }
		return ref, html.EscapeString, "<br/>\n"
	case types.StylePlain:
		ref := func(n int) string { return fmt.Sprintf("[%d] ", n) }
		return ref, sources.Identity, "\n"
	default:
		ref := func(n int) string { return fmt.Sprintf("[^%d]: ", n) }
		return ref, sources.Identity, "\n"
	}
}

// ReferencesSection renders the extractor's accumulated table as a
// references section ready to append to a rewritten document. Returns the
// empty string when no sources were extracted.
func ReferencesSection(ex *sources.Extractor, style types.MarkerStyle) string {
	if ex.Count() == 0 {
		return ""
	}

	ref, src, delim := listFormat(style)
	list := ex.FormatSources(ref, src, delim)

	if style == types.StylePlain {
		return "\n\nReferences:\n" + list + "\n"
	}
	return "\n\n## References\n\n" + list + "\n"
}
