package markdown

import (
	"reflect"
	"testing"
)

func TestParseInlinePlain(t *testing.T) {
	got := ParseInline("노트 요약")
	want := []Span{{Text: "노트 요약"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected spans: %#v", got)
	}
}

func TestParseInlineBoldItalicCode(t *testing.T) {
	got := ParseInline("a **bold** and *ital* and `co*de`")
	want := []Span{
		{Text: "a "},
		{Text: "bold", Bold: true},
		{Text: " and "},
		{Text: "ital", Italic: true},
		{Text: " and "},
		{Text: "co*de", Code: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected spans: %#v", got)
	}
}

func TestParseInlineEscapes(t *testing.T) {
	got := ParseInline(`\*not italic\*`)
	want := []Span{{Text: "*not italic*"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected spans: %#v", got)
	}
}

func TestParseInlineUnclosedMarkersLiteral(t *testing.T) {
	got := ParseInline("**bold *oops")
	want := []Span{{Text: "**bold *oops"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected spans: %#v", got)
	}
}

func TestParseLinesBlocks(t *testing.T) {
	text := "## 요약\n- first **point**\n  * nested\n> quoted\n```\n*raw*\n```\nplain"
	lines := ParseLines(text)
	kinds := make([]LineKind, 0, len(lines))
	for _, line := range lines {
		kinds = append(kinds, line.Kind)
	}
	want := []LineKind{LineHeading, LineBullet, LineBullet, LineQuote, LineCode, LineText}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
	if lines[0].Level != 2 || PlainText(lines[0].Spans) != "요약" {
		t.Fatalf("unexpected heading: %#v", lines[0])
	}
	if lines[2].Level != 2 {
		t.Fatalf("expected nested bullet indent 2, got %d", lines[2].Level)
	}
	if lines[4].Spans[0].Text != "*raw*" {
		t.Fatalf("expected fenced text verbatim, got %#v", lines[4])
	}
}

func TestHeadingNeedsSpace(t *testing.T) {
	lines := ParseLines("#hashtag")
	if len(lines) != 1 || lines[0].Kind != LineText {
		t.Fatalf("expected text line, got %#v", lines)
	}
}
