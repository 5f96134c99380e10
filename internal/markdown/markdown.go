// Package markdown parses the small markdown subset assistant replies use.
package markdown

import "strings"

// Span represents a styled slice of text.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
	Code   bool
}

// LineKind classifies a block-level line.
type LineKind int

const (
	LineText LineKind = iota
	LineHeading
	LineBullet
	LineQuote
	LineCode
)

// Line is one parsed line of a reply. Level is the heading depth for
// headings and the indent width for bullets.
type Line struct {
	Kind  LineKind
	Level int
	Spans []Span
}

// ParseLines splits text into lines and classifies them. Lines inside ```
// fences are kept verbatim as code.
func ParseLines(text string) []Line {
	if text == "" {
		return nil
	}
	var out []Line
	fenced := false
	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "```") {
			fenced = !fenced
			continue
		}
		if fenced {
			out = append(out, Line{Kind: LineCode, Spans: []Span{{Text: raw, Code: true}}})
			continue
		}
		out = append(out, parseLine(raw))
	}
	return out
}

func parseLine(raw string) Line {
	indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
	body := raw[indent:]
	if level := headingLevel(body); level > 0 {
		return Line{Kind: LineHeading, Level: level, Spans: ParseInline(strings.TrimSpace(body[level:]))}
	}
	for _, bullet := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(body, bullet) {
			return Line{Kind: LineBullet, Level: indent, Spans: ParseInline(body[len(bullet):])}
		}
	}
	if rest, ok := strings.CutPrefix(body, ">"); ok {
		return Line{Kind: LineQuote, Spans: ParseInline(strings.TrimPrefix(rest, " "))}
	}
	return Line{Kind: LineText, Spans: ParseInline(raw)}
}

func headingLevel(body string) int {
	level := 0
	for level < len(body) && level < 6 && body[level] == '#' {
		level++
	}
	if level == 0 || level >= len(body) || body[level] != ' ' {
		return 0
	}
	return level
}

type inlineParser struct {
	input string
	spans []Span
	buf   strings.Builder
	style Span
}

// ParseInline parses a subset of inline markdown (bold, italic, code).
// Supported markers: **bold**, *italic*, and `code`. Markers without a
// closing counterpart are kept as text.
func ParseInline(input string) []Span {
	if input == "" {
		return nil
	}
	p := &inlineParser{input: input}
	for i := 0; i < len(input); {
		i = p.step(i)
	}
	p.flush()
	return p.spans
}

func (p *inlineParser) step(i int) int {
	rest := p.input[i:]
	switch {
	case rest[0] == '\\' && len(rest) > 1:
		p.buf.WriteByte(rest[1])
		return i + 2
	case rest[0] == '`':
		if p.style.Code || strings.Contains(rest[1:], "`") {
			p.toggle(&p.style.Code)
			return i + 1
		}
	case p.style.Code:
	case strings.HasPrefix(rest, "**"):
		if p.style.Bold || strings.Contains(rest[2:], "**") {
			p.toggle(&p.style.Bold)
		} else {
			p.buf.WriteString("**")
		}
		return i + 2
	case rest[0] == '*':
		if p.style.Italic || strings.Contains(rest[1:], "*") {
			p.toggle(&p.style.Italic)
			return i + 1
		}
	}
	p.buf.WriteByte(rest[0])
	return i + 1
}

func (p *inlineParser) toggle(flag *bool) {
	p.flush()
	*flag = !*flag
}

func (p *inlineParser) flush() {
	if p.buf.Len() == 0 {
		return
	}
	span := p.style
	span.Text = p.buf.String()
	p.spans = append(p.spans, span)
	p.buf.Reset()
}

// PlainText joins spans without styling.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(span.Text)
	}
	return b.String()
}
