package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"pkt.systems/notechat/internal/logx"
	"pkt.systems/notechat/internal/persist"
	"pkt.systems/notechat/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior.
type service struct {
	cfg         schema.ClientConfig
	backend     Backend
	sink        EventSink
	store       *persist.Store
	logger      pslog.Logger
	mu          sync.Mutex
	dir         directory
	transcripts map[schema.SessionID]*transcript
	history     *historyBuffer
	state       schema.StreamState
	handle      *streamHandle
	// token has one slot; a send holds it for the lifetime of its stream.
	token chan struct{}
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ClientConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeClientConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Backend == nil {
		return nil, errors.New("backend is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	var store *persist.Store
	var snapshot persist.ClientSnapshot
	if cfg.StateDir != "" {
		store, err = persist.NewStoreWithLogger(cfg.StateDir, logger)
		if err != nil {
			return nil, err
		}
		loaded, ok, err := store.Load()
		if err != nil {
			logger.Warn("service state ignored", "err", err)
		} else if ok {
			snapshot = loaded
		}
	}
	return &service{
		cfg:         cfg,
		backend:     deps.Backend,
		sink:        deps.EventSink,
		store:       store,
		logger:      logger,
		dir:         directory{active: snapshot.Active},
		transcripts: make(map[schema.SessionID]*transcript),
		history:     newHistory(cfg.HistoryMax, snapshot.History),
		state:       schema.StreamIdle,
		token:       make(chan struct{}, 1),
	}, nil
}

func (s *service) ListSessions(ctx context.Context) ([]schema.Session, error) {
	log := logx.Ctx(ctx)
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		log.Warn("service list sessions failed", "err", err)
		return nil, err
	}
	s.mu.Lock()
	s.dir.replace(sessions)
	restored := s.dir.active
	if restored != "" && !s.dir.contains(restored) {
		// a persisted selection that no longer exists
		log.Info("service restored session missing", "session", string(restored))
		s.dir.active = ""
	}
	active := s.dir.active
	out := s.dir.list()
	s.mu.Unlock()
	s.emit(schema.Event{Type: schema.EventSessions, Sessions: out})
	log.Debug("service sessions listed", "count", len(out))

	switch {
	case active == "" && len(out) > 0:
		active = out[0].ID
	case active != "" && s.Transcript(active).Loaded:
		return out, nil
	}
	if active != "" {
		if _, err := s.SelectSession(ctx, active); err != nil {
			// recorded on the transcript; the listing itself succeeded
			log.Warn("service initial transcript load failed", "session", string(active), "err", err)
		}
	}
	return out, nil
}

func (s *service) CreateSession(ctx context.Context) (schema.Session, error) {
	log := logx.Ctx(ctx)
	session, err := s.backend.CreateSession(ctx)
	if err != nil {
		log.Warn("service create session failed", "err", err)
		return schema.Session{}, err
	}
	s.mu.Lock()
	s.dir.prepend(session)
	out := s.dir.list()
	s.mu.Unlock()
	s.emit(schema.Event{Type: schema.EventSessions, Sessions: out})
	log.Info("service session created", "session", string(session.ID))
	return session, nil
}

func (s *service) CreateAndSelectSession(ctx context.Context) (schema.Session, TranscriptView, error) {
	session, err := s.CreateSession(ctx)
	if err != nil {
		return schema.Session{}, TranscriptView{}, err
	}
	view, err := s.SelectSession(ctx, session.ID)
	return session, view, err
}

func (s *service) SelectSession(ctx context.Context, id schema.SessionID) (TranscriptView, error) {
	ctx = logx.ContextWithSessionLogger(ctx, logx.WithSession(ctx, id), id)
	log := logx.Ctx(ctx)
	s.mu.Lock()
	if !s.dir.contains(id) {
		s.mu.Unlock()
		return TranscriptView{SessionID: id}, fmt.Errorf("%w: %s", schema.ErrSessionNotFound, id)
	}
	previous := s.dir.active
	t := s.transcripts[id]
	if previous == id && t != nil && t.loaded {
		view := t.view(id)
		s.mu.Unlock()
		log.Trace("service select no-op")
		return view, nil
	}
	s.dir.active = id
	s.mu.Unlock()
	if previous != id {
		s.emit(schema.Event{Type: schema.EventActive, Active: id})
		s.persist(log)
		log.Info("service session selected", "previous", string(previous))
	}
	err := s.loadTranscript(ctx, id)
	return s.Transcript(id), err
}

// loadTranscript fetches a transcript once per process. Concurrent callers
// for the same session share a single fetch.
func (s *service) loadTranscript(ctx context.Context, id schema.SessionID) error {
	log := logx.Ctx(ctx)
	s.mu.Lock()
	t := s.transcripts[id]
	if t == nil {
		t = &transcript{}
		s.transcripts[id] = t
	}
	for t.loading != nil && !t.loaded {
		wait := t.loading
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
	}
	if t.loaded {
		s.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	t.loading = done
	s.mu.Unlock()

	messages, err := s.backend.FetchTranscript(ctx, id)

	s.mu.Lock()
	t.loading = nil
	close(done)
	if err != nil {
		t.err = err
	} else {
		t.messages = messages
		t.loaded = true
		t.err = nil
	}
	view := t.view(id)
	s.mu.Unlock()

	if err != nil {
		log.Warn("service transcript load failed", "err", err)
		s.emit(schema.Event{Type: schema.EventTranscript, SessionID: id, Err: err})
		return err
	}
	log.Debug("service transcript loaded", "messages", len(view.Messages))
	s.emit(schema.Event{Type: schema.EventTranscript, SessionID: id, Messages: view.Messages})
	return nil
}

func (s *service) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return schema.ErrEmptyMessage
	}
	s.mu.Lock()
	id := s.dir.active
	s.mu.Unlock()
	if id == "" {
		return schema.ErrNoSession
	}
	if !s.acquire() {
		logx.WithSession(ctx, id).Debug("service send rejected", "err", schema.ErrBusy)
		return schema.ErrBusy
	}
	if err := s.backend.Authorized(ctx); err != nil {
		s.release()
		return err
	}

	s.mu.Lock()
	id = s.dir.active
	t := s.transcripts[id]
	if t == nil || !t.loaded {
		s.mu.Unlock()
		s.release()
		return fmt.Errorf("%w: %s", schema.ErrTranscriptUnavailable, id)
	}
	userMsg := schema.Message{Role: schema.RoleUser, Content: text}
	placeholder := schema.Message{Role: schema.RoleAssistant}
	t.replyErr = nil
	userIndex := t.append(userMsg)
	index := t.append(placeholder)
	runCtx, runCancel := detachRunContext(logx.ContextWithSessionLogger(ctx, logx.WithSession(ctx, id), id))
	h := &streamHandle{
		sessionID: id,
		index:     index,
		cancel:    runCancel,
		done:      make(chan struct{}),
	}
	s.handle = h
	s.state = schema.StreamSending
	s.history.Append(text)
	s.mu.Unlock()

	s.emit(schema.Event{Type: schema.EventMessage, SessionID: id, Index: userIndex, Message: userMsg})
	s.emit(schema.Event{Type: schema.EventMessage, SessionID: id, Index: index, Message: placeholder})
	s.emit(schema.Event{Type: schema.EventStream, SessionID: id, State: schema.StreamSending})
	log := logx.Ctx(runCtx)
	log.Info("service send accepted", "text_len", len(text))
	s.persist(log)

	go s.runStream(runCtx, h, text)
	return nil
}

func (s *service) CancelStream() bool {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h == nil {
		return false
	}
	s.logger.With("session", string(h.sessionID)).Info("service reply cancel requested")
	h.stop()
	return true
}

func (s *service) Wait(ctx context.Context) error {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h == nil {
		return nil
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *service) Close(ctx context.Context) error {
	s.CancelStream()
	err := s.Wait(ctx)
	s.persist(s.logger)
	return err
}

func (s *service) Sessions() []schema.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.list()
}

func (s *service) Active() (schema.SessionID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.active, s.dir.active != ""
}

func (s *service) Transcript(id schema.SessionID) TranscriptView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcripts[id].view(id)
}

func (s *service) ActiveTranscript() (TranscriptView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir.active == "" {
		return TranscriptView{}, schema.ErrNoSession
	}
	return s.transcripts[s.dir.active].view(s.dir.active), nil
}

func (s *service) StreamState() (schema.StreamState, schema.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return s.state, ""
	}
	return s.state, s.handle.sessionID
}

func (s *service) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

func (s *service) emit(event schema.Event) {
	if s.sink == nil {
		return
	}
	s.sink.OnEvent(event)
}

func (s *service) persist(log pslog.Logger) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	snapshot := persist.ClientSnapshot{Active: s.dir.active, History: s.history.Entries()}
	s.mu.Unlock()
	if err := s.store.Save(snapshot); err != nil {
		if log != nil {
			log.Warn("service persist failed", "err", err)
		}
		return
	}
	if log != nil {
		log.Trace("service state persisted", "history", len(snapshot.History))
	}
}

// detachRunContext keeps the logger and log markers of ctx but not its
// cancellation, so a reply outlives the call that started it.
func detachRunContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.Background()
	if ctx != nil {
		if logger := pslog.Ctx(ctx); logger != nil {
			base = logx.CopyContextFields(pslog.ContextWithLogger(base, logger), ctx)
		}
	}
	return context.WithCancel(base)
}
