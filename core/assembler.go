package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"pkt.systems/notechat/internal/logx"
	"pkt.systems/notechat/internal/streamdec"
	"pkt.systems/notechat/schema"
)

// streamHandle is the single live reply stream. Holding the service token
// is what makes a handle live.
type streamHandle struct {
	sessionID schema.SessionID
	index     int
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}

	mu     sync.Mutex
	stream *streamdec.Stream
}

func (h *streamHandle) setStream(stream *streamdec.Stream) {
	h.mu.Lock()
	h.stream = stream
	h.mu.Unlock()
	if h.cancelled.Load() {
		_ = stream.Close()
	}
}

func (h *streamHandle) stop() {
	h.cancelled.Store(true)
	h.cancel()
	h.mu.Lock()
	stream := h.stream
	h.mu.Unlock()
	if stream != nil {
		_ = stream.Close()
	}
}

func (s *service) acquire() bool {
	select {
	case s.token <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *service) release() {
	<-s.token
}

func (s *service) runStream(ctx context.Context, h *streamHandle, text string) {
	log := logx.WithSession(ctx, h.sessionID)
	defer s.finishStream(h)

	body, err := s.backend.SendMessage(ctx, h.sessionID, text)
	if err != nil {
		if h.cancelled.Load() {
			log.Info("service reply cancelled before stream opened")
			return
		}
		s.failReply(h, err)
		return
	}
	stream := streamdec.NewStream(ctx, body, s.cfg.StreamReadSize)
	defer func() { _ = stream.Close() }()
	h.setStream(stream)
	s.setStreamState(h, schema.StreamStreaming)
	log.Debug("service reply stream open")

	fragments := 0
	for {
		fragment, err := stream.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Info("service reply complete", "fragments", fragments)
			case h.cancelled.Load():
				log.Info("service reply cancelled", "fragments", fragments)
			default:
				s.failReply(h, err)
			}
			return
		}
		fragments++
		s.appendFragment(h, fragment)
	}
}

func (s *service) appendFragment(h *streamHandle, fragment string) {
	s.mu.Lock()
	t := s.transcripts[h.sessionID]
	t.messages[h.index].Content += fragment
	s.mu.Unlock()
	s.emit(schema.Event{Type: schema.EventFragment, SessionID: h.sessionID, Index: h.index, Fragment: fragment})
}

// failReply writes the failure marker into the placeholder. Partial text is
// dropped unless KeepPartialReply is set.
func (s *service) failReply(h *streamHandle, cause error) {
	s.mu.Lock()
	t := s.transcripts[h.sessionID]
	t.replyErr = cause
	msg := &t.messages[h.index]
	if s.cfg.KeepPartialReply && msg.Content != "" {
		msg.Content += "\n\n" + s.cfg.FailureMessage
	} else {
		msg.Content = s.cfg.FailureMessage
	}
	failed := *msg
	s.mu.Unlock()
	s.logger.With("session", string(h.sessionID)).Warn("service reply failed", "err", cause)
	s.emit(schema.Event{Type: schema.EventFailed, SessionID: h.sessionID, Index: h.index, Message: failed, Err: cause})
}

func (s *service) setStreamState(h *streamHandle, state schema.StreamState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.emit(schema.Event{Type: schema.EventStream, SessionID: h.sessionID, State: state})
}

func (s *service) finishStream(h *streamHandle) {
	h.cancel()
	s.mu.Lock()
	s.state = schema.StreamIdle
	s.handle = nil
	s.mu.Unlock()
	s.emit(schema.Event{Type: schema.EventStream, SessionID: h.sessionID, State: schema.StreamIdle})
	s.release()
	close(h.done)
}
