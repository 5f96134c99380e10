package core

import (
	"context"

	"pkt.systems/notechat/schema"
)

// Service manages chat sessions, their transcripts and the single live reply
// stream.
type Service interface {
	// ListSessions refreshes the session directory. On failure the previous
	// list is kept. When no session is selected the newest one is selected.
	ListSessions(ctx context.Context) ([]schema.Session, error)
	// CreateSession creates a session and puts it first in the directory.
	CreateSession(ctx context.Context) (schema.Session, error)
	// CreateAndSelectSession creates a session and selects it.
	CreateAndSelectSession(ctx context.Context) (schema.Session, TranscriptView, error)
	// SelectSession makes id active and loads its transcript on first use. A
	// live reply stream keeps running in the background.
	SelectSession(ctx context.Context, id schema.SessionID) (TranscriptView, error)
	// Send appends the user message and an empty assistant placeholder to the
	// active transcript and streams the reply in the background.
	Send(ctx context.Context, text string) error
	// CancelStream closes the live reply stream, keeping the text received so
	// far. It reports whether a stream was live.
	CancelStream() bool
	// Wait blocks until no reply stream is live.
	Wait(ctx context.Context) error
	// Close cancels the live stream, waits for it and saves client state.
	Close(ctx context.Context) error

	Sessions() []schema.Session
	Active() (schema.SessionID, bool)
	Transcript(id schema.SessionID) TranscriptView
	ActiveTranscript() (TranscriptView, error)
	StreamState() (schema.StreamState, schema.SessionID)
	History() []string
}
