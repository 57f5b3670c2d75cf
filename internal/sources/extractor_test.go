package sources

import (
	"fmt"
	"strings"
	"testing"
)

// parenRef formats reference numbers like " (1)".
func parenRef(n int) string {
	return fmt.Sprintf(" (%d)", n)
}

// --- Parse ---

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantText    string
		wantSources []string
	}{
		{
			name:        "single citation mid-text",
			text:        "This is some dummy text. Source: a nice book. Here is more text.",
			wantText:    "This is some dummy text (1). Here is more text.",
			wantSources: []string{"a nice book"},
		},
		{
			name:        "no citations returns input unchanged",
			text:        "Plain text with no references at all.\nSecond line.",
			wantText:    "Plain text with no references at all.\nSecond line.",
			wantSources: nil,
		},
		{
			name:        "citation at start of text",
			text:        "Source: the manual. Everything else follows.",
			wantText:    " (1). Everything else follows.",
			wantSources: []string{"the manual"},
		},
		{
			name:        "plural keyword",
			text:        "See the appendix. Sources: field notes\nNext line.",
			wantText:    "See the appendix (1)\nNext line.",
			wantSources: []string{"field notes"},
		},
		{
			name:        "case-insensitive keyword",
			text:        "source:x",
			wantText:    " (1)",
			wantSources: []string{"x"},
		},
		{
			name:        "uppercase keyword with spaced colon",
			text:        "SOURCES : y",
			wantText:    " (1)",
			wantSources: []string{"y"},
		},
		{
			name:        "parenthetical citation strips trailing paren",
			text:        "Text (Source: a book).",
			wantText:    "Text (1).",
			wantSources: []string{"a book"},
		},
		{
			name:        "all closing parens removed from payload",
			text:        "(Source: text with (nested) parts)",
			wantText:    " (1)",
			wantSources: []string{"text with (nested parts"},
		},
		{
			name:        "empty payload before period",
			text:        "Trust me. Source: . Really.",
			wantText:    "Trust me (1). Really.",
			wantSources: []string{""},
		},
		{
			name:        "two citations in one text",
			text:        "First claim. Source: book one. Second claim. Source: book two. End.",
			wantText:    "First claim (1). Second claim (2). End.",
			wantSources: []string{"book one", "book two"},
		},
		{
			name:        "payload stops at newline",
			text:        "Claim here Source: a report\nand the story continues.",
			wantText:    "Claim here (1)\nand the story continues.",
			wantSources: []string{"a report"},
		},
		{
			name:        "keyword without colon is not a citation",
			text:        "The source of the river is up north.",
			wantText:    "The source of the river is up north.",
			wantSources: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExtractor()
			got := ex.Parse(tt.text, parenRef)
			if got != tt.wantText {
				t.Errorf("Parse = %q, want %q", got, tt.wantText)
			}
			sources := ex.Sources()
			if len(sources) != len(tt.wantSources) {
				t.Fatalf("got %d sources %v, want %d %v", len(sources), sources, len(tt.wantSources), tt.wantSources)
			}
			for i, want := range tt.wantSources {
				if sources[i] != want {
					t.Errorf("sources[%d] = %q, want %q", i, sources[i], want)
				}
			}
		})
	}
}

func TestParseNumberingIsGlobalAcrossCalls(t *testing.T) {
	ex := NewExtractor()

	first := ex.Parse("One claim. Source: alpha. Done.", parenRef)
	if first != "One claim (1). Done." {
		t.Errorf("first Parse = %q", first)
	}
	if ex.Count() != 1 {
		t.Fatalf("Count after first Parse = %d, want 1", ex.Count())
	}

	second := ex.Parse("Another claim. Source: beta. Done.", parenRef)
	if second != "Another claim (2). Done." {
		t.Errorf("second Parse = %q, want numbering to continue at 2", second)
	}

	sources := ex.Sources()
	if len(sources) != 2 || sources[0] != "alpha" || sources[1] != "beta" {
		t.Errorf("Sources = %v, want [alpha beta]", sources)
	}
}

func TestParsePreservesUnmatchedSpans(t *testing.T) {
	// With a formatter that emits nothing, the output is exactly the input
	// minus the matched spans: no character outside a match is altered.
	text := "Intro text. Source: first book. Middle\ttext.\nSource: second book\nTail."
	ex := NewExtractor()
	got := ex.Parse(text, func(int) string { return "" })

	// Independently reconstruct: splice out full matches.
	var b strings.Builder
	last := 0
	for _, m := range CitationPattern.FindAllStringIndex(text, -1) {
		b.WriteString(text[last:m[0]])
		last = m[1]
	}
	b.WriteString(text[last:])
	want := b.String()

	if got != want {
		t.Errorf("Parse with empty formatter = %q, want unmatched spans %q", got, want)
	}
	if len(got) >= len(text) {
		t.Errorf("output length %d should be shorter than input %d", len(got), len(text))
	}
}

func TestParseGrowsSourcesByMatchCount(t *testing.T) {
	ex := NewExtractor()
	ex.Parse("No citations here at all.", parenRef)
	if ex.Count() != 0 {
		t.Errorf("Count = %d, want 0 after zero-match parse", ex.Count())
	}
	ex.Parse("A. Source: x. B. Source: y. C. Source: z.", parenRef)
	if ex.Count() != 3 {
		t.Errorf("Count = %d, want 3", ex.Count())
	}
}

func TestParseNilFormatterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Parse with nil formatter should panic")
		}
	}()
	NewExtractor().Parse("Source: anything.", nil)
}

// --- Sources ---

func TestSourcesReturnsCopy(t *testing.T) {
	ex := NewExtractor()
	ex.Parse("Claim. Source: original. End.", parenRef)

	view := ex.Sources()
	view[0] = "tampered"

	if got := ex.Sources()[0]; got != "original" {
		t.Errorf("internal table mutated through Sources view: %q", got)
	}
}

// --- FormatSources ---

func TestFormatSources(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		ref   ReferenceFormatter
		src   SourceFormatter
		delim string
		want  string
	}{
		{
			name:  "empty extractor yields empty string",
			texts: nil,
			ref:   HTMLReferenceFormat,
			src:   Identity,
			delim: "\n",
			want:  "",
		},
		{
			name:  "single source has no delimiter",
			texts: []string{"A. Source: only one. B."},
			ref:   func(n int) string { return fmt.Sprintf("(%d) ", n) },
			src:   Identity,
			delim: "\n",
			want:  "(1) only one",
		},
		{
			name: "delimiter only between entries",
			texts: []string{
				"A. Source: first. B.",
				"C. Source: second. D. Source: third. E.",
			},
			ref:   func(n int) string { return fmt.Sprintf("(%d) ", n) },
			src:   Identity,
			delim: "\n",
			want:  "(1) first\n(2) second\n(3) third",
		},
		{
			name:  "source formatter rewrites entries",
			texts: []string{"A. Source: ab. B. Source: cd. C."},
			ref:   HTMLReferenceFormat,
			src:   strings.ToUpper,
			delim: "<br/>",
			want:  "<sup>1</sup>AB<br/><sup>2</sup>CD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExtractor()
			for _, text := range tt.texts {
				ex.Parse(text, parenRef)
			}
			got := ex.FormatSources(tt.ref, tt.src, tt.delim)
			if got != tt.want {
				t.Errorf("FormatSources = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSourcesDelimiterCount(t *testing.T) {
	ex := NewExtractor()
	ex.Parse("Source: a. Source: b. Source: c. Source: d.", parenRef)

	out := ex.FormatSources(func(n int) string { return fmt.Sprintf("[%d] ", n) }, Identity, "|")
	if got, want := strings.Count(out, "|"), ex.Count()-1; got != want {
		t.Errorf("delimiter count = %d, want %d for %d sources", got, want, ex.Count())
	}
	if strings.HasPrefix(out, "|") || strings.HasSuffix(out, "|") {
		t.Errorf("output has leading or trailing delimiter: %q", out)
	}
}

func TestFormatSourcesDoesNotMutate(t *testing.T) {
	ex := NewExtractor()
	ex.Parse("A. Source: keep me. B.", parenRef)

	before := ex.Sources()
	ex.FormatSources(HTMLReferenceFormat, strings.ToUpper, "\n")
	after := ex.Sources()

	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("FormatSources mutated table: before %v, after %v", before, after)
	}
}

func TestFormatSourcesNilFormatterPanics(t *testing.T) {
	ex := NewExtractor()
	ex.Parse("Source: x.", parenRef)

	for _, tt := range []struct {
		name string
		ref  ReferenceFormatter
		src  SourceFormatter
	}{
		{"nil reference formatter", nil, Identity},
		{"nil source formatter", HTMLReferenceFormat, nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			ex.FormatSources(tt.ref, tt.src, "\n")
		})
	}
}

// --- HTMLReferenceFormat ---

func TestHTMLReferenceFormat(t *testing.T) {
	if got := HTMLReferenceFormat(7); got != "<sup>7</sup>" {
		t.Errorf("HTMLReferenceFormat(7) = %q, want %q", got, "<sup>7</sup>")
	}
}
