package core

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"pkt.systems/notechat/schema"
)

type fakeBackend struct {
	mu          sync.Mutex
	sessions    []schema.Session
	transcripts map[schema.SessionID][]schema.Message
	fetches     map[schema.SessionID]int
	fetchErr    map[schema.SessionID]error
	listErr     error
	createErr   error
	authErr     error
	sendErr     error
	nextID      int
	sends       int
	streams     chan *io.PipeWriter
}

func newFakeBackend(sessions ...schema.Session) *fakeBackend {
	return &fakeBackend{
		sessions:    sessions,
		transcripts: map[schema.SessionID][]schema.Message{},
		fetches:     map[schema.SessionID]int{},
		fetchErr:    map[schema.SessionID]error{},
		nextID:      100,
		streams:     make(chan *io.PipeWriter, 4),
	}
}

func (f *fakeBackend) Authorized(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authErr
}

func (f *fakeBackend) ListSessions(context.Context) ([]schema.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]schema.Session(nil), f.sessions...), nil
}

func (f *fakeBackend) CreateSession(context.Context) (schema.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return schema.Session{}, f.createErr
	}
	f.nextID++
	session := schema.Session{ID: schema.SessionID(strconv.Itoa(f.nextID)), Title: ""}
	f.sessions = append([]schema.Session{session}, f.sessions...)
	return session, nil
}

func (f *fakeBackend) FetchTranscript(_ context.Context, id schema.SessionID) ([]schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[id]++
	if err := f.fetchErr[id]; err != nil {
		return nil, err
	}
	return append([]schema.Message{}, f.transcripts[id]...), nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, id schema.SessionID, text string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.sends++
	err := f.sendErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	reader, writer := io.Pipe()
	f.streams <- writer
	return reader, nil
}

func (f *fakeBackend) fetchCount(id schema.SessionID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[id]
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) nextStream(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-f.streams:
		return w
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reply stream")
		return nil
	}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []schema.Event
}

func (r *eventRecorder) OnEvent(event schema.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) count(eventType schema.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newTestService(t *testing.T, cfg schema.ClientConfig, backend Backend) (Service, *eventRecorder) {
	t.Helper()
	recorder := &eventRecorder{}
	svc, err := NewService(cfg, ServiceDeps{Backend: backend, EventSink: recorder})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Close(ctx)
	})
	return svc, recorder
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitIdle(t *testing.T, svc Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if state, _ := svc.StreamState(); state != schema.StreamIdle {
		t.Fatalf("expected idle, got %s", state)
	}
}

func lastContent(t *testing.T, svc Service, id schema.SessionID) string {
	t.Helper()
	view := svc.Transcript(id)
	if len(view.Messages) == 0 {
		t.Fatalf("transcript for %s is empty", id)
	}
	return view.Messages[len(view.Messages)-1].Content
}
