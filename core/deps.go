package core

import (
	"context"
	"io"

	"pkt.systems/notechat/schema"
	"pkt.systems/pslog"
)

// Backend is the subset of the chat API the service depends on.
type Backend interface {
	// Authorized reports schema.ErrAuthMissing when no credential is
	// available. It must not perform network I/O.
	Authorized(ctx context.Context) error
	ListSessions(ctx context.Context) ([]schema.Session, error)
	CreateSession(ctx context.Context) (schema.Session, error)
	FetchTranscript(ctx context.Context, id schema.SessionID) ([]schema.Message, error)
	SendMessage(ctx context.Context, id schema.SessionID, text string) (io.ReadCloser, error)
}

// ServiceDeps captures dependencies for the core service.
type ServiceDeps struct {
	Backend   Backend
	EventSink EventSink
	Logger    pslog.Logger
}
