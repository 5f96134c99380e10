package core

import "strings"

type historyBuffer struct {
	entries []string
	max     int
}

func newHistory(max int, persisted []string) *historyBuffer {
	if max <= 0 {
		max = 1
	}
	h := &historyBuffer{max: max}
	if len(persisted) > max {
		persisted = persisted[len(persisted)-max:]
	}
	h.entries = append([]string(nil), persisted...)
	return h
}

// Append records entry unless it is blank or repeats the previous entry.
func (h *historyBuffer) Append(entry string) bool {
	if h == nil {
		return false
	}
	if strings.TrimSpace(entry) == "" {
		return false
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return false
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	return true
}

func (h *historyBuffer) Entries() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.entries...)
}
