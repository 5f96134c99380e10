package schema

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyMessage indicates the submitted text was empty.
	ErrEmptyMessage = errors.New("empty message")
	// ErrNoSession indicates no session is selected.
	ErrNoSession = errors.New("no session selected")
	// ErrBusy indicates a reply is already streaming.
	ErrBusy = errors.New("a reply is already streaming")
	// ErrAuthMissing indicates no credential is available; re-authentication is required.
	ErrAuthMissing = errors.New("not authenticated")
	// ErrSessionNotFound indicates the session is not in the directory.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTranscriptUnavailable indicates the active transcript failed to load.
	ErrTranscriptUnavailable = errors.New("transcript not loaded")
	// ErrInvalidSession indicates a malformed session id.
	ErrInvalidSession = errors.New("invalid session id")
	// ErrInvalidRole indicates an unknown message role.
	ErrInvalidRole = errors.New("invalid role")
)

// IsValidation reports whether err belongs to the pre-flight class that is
// rejected before any network I/O or state change.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrAuthMissing) ||
		errors.Is(err, ErrTranscriptUnavailable)
}

// TransportError wraps network failures and non-success HTTP statuses.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

// NewTransportError constructs a transport error for op.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport error"
	}
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s failed: status=%d body=%s", e.Op, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s failed: status=%d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s failed", e.Op)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Unauthorized reports whether the backend rejected the credential.
func (e *TransportError) Unauthorized() bool {
	if e == nil {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// DecodeError reports a malformed byte stream or response payload.
type DecodeError struct {
	Op       string
	Trailing []byte
	Err      error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "decode error"
	}
	if len(e.Trailing) > 0 {
		return fmt.Sprintf("%s: %d undecodable trailing bytes", e.Op, len(e.Trailing))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": decode error"
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
