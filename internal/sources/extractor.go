// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources extracts inline "Source:" citations from free-form text,
// replacing each with a caller-formatted reference marker and accumulating
// the citation payloads into an ordered reference table.
package sources

import (
	"fmt"
	"regexp"
	"strings"
)

// CitationPattern matches one inline citation: the keyword "source" or
// "sources" introduced by start-of-text or a run of whitespace, periods, or
// opening parentheses, then a colon, then the payload up to (but excluding)
// the next period or newline. The payload capture may be empty. Matching is
// case-insensitive. Exported so callers can locate match spans in the
// original text (e.g. for context snippets) with the exact pattern Parse
// applies.
var CitationPattern = regexp.MustCompile(`(?i)(?:^|[\s.(]+)sources?\s*:\s*([^.\n]*)`)

// ReferenceFormatter renders a 1-based reference number as marker text.
type ReferenceFormatter func(n int) string

// SourceFormatter transforms a stored citation payload for output. Use
// Identity to keep payloads as they were stored.
type SourceFormatter func(s string) string

// Extractor accumulates citations across repeated Parse calls so that
// several texts can share one unified reference table with increasing
// numbers. The internal table is append-only: entries are never removed,
// reordered, or mutated after insertion.
//
// An Extractor is not safe for concurrent use. Callers needing concurrency
// must serialize access or use one Extractor per goroutine.
type Extractor struct {
	sources []string
}

// NewExtractor returns an empty Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Parse scans text for inline citations, left to right and non-overlapping.
// Each matched citation is replaced by ref applied to the 1-based number the
// citation occupies in the accumulated table; all text outside matches is
// copied through verbatim. The citation payload, with every closing
// parenthesis removed, is appended to the table as a side effect.
//
// Numbering is global across Parse calls on the same Extractor: a second
// call continues where the first left off. Text with no citations is
// returned unchanged. A nil ref is a programming error and panics.
func (e *Extractor) Parse(text string, ref ReferenceFormatter) string {
	if ref == nil {
		panic("sources: Parse called with nil ReferenceFormatter")
	}

	var edited strings.Builder
	last := 0

	for _, m := range CitationPattern.FindAllStringSubmatchIndex(text, -1) {
		// Text before the citation, then the formatted reference number.
		edited.WriteString(text[last:m[0]])
		edited.WriteString(ref(len(e.sources) + 1))
		last = m[1]

		// Store the payload, dropping every ')' to stay consistent with
		// the '(' the pattern consumes before the keyword.
		payload := strings.ReplaceAll(text[m[2]:m[3]], ")", "")
		e.sources = append(e.sources, payload)
	}

	edited.WriteString(text[last:])
	return edited.String()
}

// Sources returns a copy of the accumulated citation payloads in discovery
// order across all Parse calls made so far.
func (e *Extractor) Sources() []string {
	out := make([]string, len(e.sources))
	copy(out, e.sources)
	return out
}

// Count returns the number of citations accumulated so far.
func (e *Extractor) Count() int {
	return len(e.sources)
}

// FormatSources renders the accumulated table as a single string. For each
// entry, 1-based, it appends joinDelimiter (between entries only, never
// leading or trailing), then ref applied to the entry number, then src
// applied to the payload. An empty table yields the empty string. The table
// itself is left untouched. Nil formatters are programming errors and panic.
func (e *Extractor) FormatSources(ref ReferenceFormatter, src SourceFormatter, joinDelimiter string) string {
	if ref == nil {
		panic("sources: FormatSources called with nil ReferenceFormatter")
	}
	if src == nil {
		panic("sources: FormatSources called with nil SourceFormatter")
	}

	var b strings.Builder
	for i, s := range e.sources {
		if i > 0 {
			b.WriteString(joinDelimiter)
		}
		b.WriteString(ref(i + 1))
		b.WriteString(src(s))
	}
	return b.String()
}

// HTMLReferenceFormat formats a reference number as an HTML exponent,
// so 3 becomes "<sup>3</sup>". It is one ready-made ReferenceFormatter;
// callers may supply their own instead.
func HTMLReferenceFormat(n int) string {
	return fmt.Sprintf("<sup>%d</sup>", n)
}

// Identity returns s unchanged.
func Identity(s string) string {
	return s
}
