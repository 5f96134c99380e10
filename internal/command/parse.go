package command

import "strings"

// Command represents a parsed slash command.
type Command struct {
	Name string
	Args []string
	Raw  string
}

// Parse parses a line and returns a Command if it starts with "/". A line
// starting with "//" is an escaped message, not a command.
func Parse(input string) (Command, bool) {
	trimmed := strings.TrimLeft(input, " \t")
	if !strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "//") {
		return Command{}, false
	}
	raw := strings.TrimSpace(trimmed[1:])
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{Raw: raw}, true
	}
	return Command{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
		Raw:  raw,
	}, true
}

// Unescape strips the leading "/" of an escaped "//" message.
func Unescape(input string) string {
	trimmed := strings.TrimLeft(input, " \t")
	if strings.HasPrefix(trimmed, "//") {
		return trimmed[1:]
	}
	return input
}
