// Package format renders sessions and transcripts for the terminal.
package format

import (
	"fmt"
	"strings"

	"pkt.systems/notechat/internal/markdown"
	"pkt.systems/notechat/schema"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiItalic = "\x1b[3m"
	ansiCode   = "\x1b[36m"
	ansiDim    = "\x1b[2m"
)

const (
	// UserLabel heads user messages.
	UserLabel = "you"
	// AssistantLabel heads assistant messages.
	AssistantLabel = "assistant"
	untitled       = "(untitled)"
)

// Renderer formats transcripts as terminal lines.
type Renderer struct {
	color bool
}

// NewRenderer returns a renderer. With color disabled markdown markers are
// stripped rather than styled.
func NewRenderer(color bool) *Renderer {
	return &Renderer{color: color}
}

// Sessions lists sessions newest first and marks the active one.
func (r *Renderer) Sessions(sessions []schema.Session, active schema.SessionID) []string {
	if len(sessions) == 0 {
		return []string{"no sessions"}
	}
	width := 0
	for _, session := range sessions {
		width = max(width, len(session.ID))
	}
	lines := make([]string, 0, len(sessions))
	for _, session := range sessions {
		marker := " "
		if session.ID == active {
			marker = "*"
		}
		title := strings.TrimSpace(session.Title)
		if title == "" {
			title = untitled
		}
		lines = append(lines, fmt.Sprintf("%s %-*s  %s", marker, width, session.ID, title))
	}
	return lines
}

// Transcript renders every message, separated by blank lines.
func (r *Renderer) Transcript(messages []schema.Message) []string {
	var lines []string
	for i, msg := range messages {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, r.Message(msg)...)
	}
	return lines
}

// Message renders one message with its header line. Only assistant text is
// treated as markdown.
func (r *Renderer) Message(msg schema.Message) []string {
	lines := []string{r.Header(msg.Role)}
	if msg.Role != schema.RoleAssistant {
		return append(lines, splitLines(msg.Content)...)
	}
	for _, line := range markdown.ParseLines(msg.Content) {
		lines = append(lines, r.line(line))
	}
	return lines
}

// Header returns the label line for role.
func (r *Renderer) Header(role schema.Role) string {
	label := UserLabel
	if role == schema.RoleAssistant {
		label = AssistantLabel
	}
	if r.color {
		return ansiDim + label + ":" + ansiReset
	}
	return label + ":"
}

func (r *Renderer) line(line markdown.Line) string {
	switch line.Kind {
	case markdown.LineHeading:
		text := markdown.PlainText(line.Spans)
		if r.color {
			return ansiBold + text + ansiReset
		}
		return text
	case markdown.LineBullet:
		return strings.Repeat(" ", line.Level) + "• " + r.spans(line.Spans)
	case markdown.LineQuote:
		return "│ " + r.spans(line.Spans)
	case markdown.LineCode:
		if r.color {
			return ansiCode + markdown.PlainText(line.Spans) + ansiReset
		}
		return markdown.PlainText(line.Spans)
	default:
		return r.spans(line.Spans)
	}
}

func (r *Renderer) spans(spans []markdown.Span) string {
	if !r.color {
		return markdown.PlainText(spans)
	}
	var b strings.Builder
	for _, span := range spans {
		styled := span.Bold || span.Italic || span.Code
		if span.Bold {
			b.WriteString(ansiBold)
		}
		if span.Italic {
			b.WriteString(ansiItalic)
		}
		if span.Code {
			b.WriteString(ansiCode)
		}
		b.WriteString(span.Text)
		if styled {
			b.WriteString(ansiReset)
		}
	}
	return b.String()
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
