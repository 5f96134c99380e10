package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SessionID identifies a backend chat session. The backend assigns it; the
// client treats it as opaque text.
type SessionID string

// Role identifies the author of a transcript message.
type Role string

const (
	// RoleUser marks messages typed by the user.
	RoleUser Role = "user"
	// RoleAssistant marks replies produced by the backend.
	RoleAssistant Role = "assistant"
)

// DefaultSessionTitle is the title the backend assigns to new sessions.
const DefaultSessionTitle = "새로운 챗"

// Session is a server-tracked conversation identity.
type Session struct {
	ID    SessionID `json:"id"`
	Title string    `json:"title"`
}

// Message is one transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts both numeric and string ids. Backend ids are opaque,
// so any non-empty string is kept as is.
func (id *SessionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: missing session id", ErrInvalidSession)
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		if value == "" {
			return fmt.Errorf("%w: empty session id", ErrInvalidSession)
		}
		*id = SessionID(value)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	*id = SessionID(number.String())
	return nil
}

// MarshalJSON writes canonical integer ids as JSON numbers and everything
// else, including "007" and "+5", as strings.
func (id SessionID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON rejects roles the transcript model does not know about.
func (r *Role) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	role, err := ParseRole(value)
	if err != nil {
		return err
	}
	*r = role
	return nil
}
