package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"pkt.systems/notechat/internal/mockbackend"
	"pkt.systems/notechat/schema"
)

func newTestClient(t *testing.T, handler http.Handler, creds CredentialSource) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{BaseURL: server.URL}, creds)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestClientListAndCreate(t *testing.T) {
	mock := mockbackend.New(mockbackend.Options{Token: "tok"})
	mock.Seed("older")
	client := newTestClient(t, mock.Handler(), StaticToken("tok"))
	ctx := context.Background()

	created, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if created.Title != schema.DefaultSessionTitle {
		t.Fatalf("unexpected title: %q", created.Title)
	}
	sessions, err := client.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != created.ID {
		t.Fatalf("expected new session first, got %+v", sessions)
	}
}

func TestClientFetchTranscript(t *testing.T) {
	mock := mockbackend.New(mockbackend.Options{})
	session := mock.Seed("s",
		schema.Message{Role: schema.RoleUser, Content: "hi"},
		schema.Message{Role: schema.RoleAssistant, Content: "hello"},
	)
	client := newTestClient(t, mock.Handler(), StaticToken("t"))
	messages, err := client.FetchTranscript(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("FetchTranscript: %v", err)
	}
	if len(messages) != 2 || messages[1].Content != "hello" {
		t.Fatalf("unexpected transcript: %+v", messages)
	}
}

func TestClientSendStreamsReply(t *testing.T) {
	mock := mockbackend.New(mockbackend.Options{ChunkSize: 2, Reply: func(m string) string { return "re: " + m }})
	session := mock.Seed("s")
	client := newTestClient(t, mock.Handler(), StaticToken("t"))
	body, err := client.SendMessage(context.Background(), session.ID, "안녕")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != "re: 안녕" {
		t.Fatalf("unexpected reply: %q", data)
	}
}

func TestClientMissingCredentialSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	client := newTestClient(t, handler, nil)
	if _, err := client.ListSessions(context.Background()); !errors.Is(err, schema.ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing, got %v", err)
	}
	if _, err := client.SendMessage(context.Background(), "1", "x"); !errors.Is(err, schema.ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no requests, got %d", hits.Load())
	}
}

func TestClientNon2xxIsTransportError(t *testing.T) {
	mock := mockbackend.New(mockbackend.Options{Token: "right"})
	client := newTestClient(t, mock.Handler(), StaticToken("wrong"))
	_, err := client.ListSessions(context.Background())
	var transportErr *schema.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !transportErr.Unauthorized() {
		t.Fatalf("expected unauthorized status, got %d", transportErr.Status)
	}
	if !strings.Contains(transportErr.Body, "invalid credentials") {
		t.Fatalf("expected body in error, got %q", transportErr.Body)
	}
}

func TestClientMalformedJSONIsDecodeError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	})
	client := newTestClient(t, handler, StaticToken("t"))
	_, err := client.ListSessions(context.Background())
	var decodeErr *schema.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestClientSendsHeaders(t *testing.T) {
	var auth, requestID, contentType string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-ID")
		contentType = r.Header.Get("Content-Type")
		if r.URL.Path != "/api/v1/chat/sessions/7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("ok"))
	})
	client := newTestClient(t, handler, StaticToken("tok"))
	body, err := client.SendMessage(context.Background(), "7", "x")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	_ = body.Close()
	if auth != "Bearer tok" {
		t.Fatalf("unexpected auth header: %q", auth)
	}
	if len(requestID) != 36 {
		t.Fatalf("expected uuid request id, got %q", requestID)
	}
	if contentType != "application/json" {
		t.Fatalf("unexpected content type: %q", contentType)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "ftp://example"}, nil); err == nil {
		t.Fatalf("expected error for non-http base url")
	}
}

func TestCredentialChain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	if err := os.WriteFile(path, []byte(" file-token\n"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	t.Setenv("NOTECHAT_TEST_TOKEN", "")

	chain := Chain{EnvToken{Name: "NOTECHAT_TEST_TOKEN"}, FileToken{Path: path}, StaticToken("static")}
	token, err := chain.Token(context.Background())
	if err != nil || token != "file-token" {
		t.Fatalf("expected file token, got %q err=%v", token, err)
	}

	t.Setenv("NOTECHAT_TEST_TOKEN", "env-token")
	token, err = chain.Token(context.Background())
	if err != nil || token != "env-token" {
		t.Fatalf("expected env token, got %q err=%v", token, err)
	}

	empty := Chain{EnvToken{}, FileToken{Path: filepath.Join(dir, "missing")}, StaticToken(" ")}
	if _, err := empty.Token(context.Background()); !errors.Is(err, schema.ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing, got %v", err)
	}
}

func TestClientAcceptsOpaqueSessionIDs(t *testing.T) {
	var fetched atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/chat/sessions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"chat:1","title":"a"},{"id":2,"title":"b"},{"id":"007","title":"c"}]`)
	})
	mux.HandleFunc("GET /api/v1/chat/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		fetched.Store(r.PathValue("id"))
		_, _ = io.WriteString(w, `[]`)
	})
	client := newTestClient(t, mux, StaticToken("t"))
	sessions, err := client.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 3 || sessions[0].ID != "chat:1" || sessions[1].ID != "2" || sessions[2].ID != "007" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if _, err := client.FetchTranscript(context.Background(), sessions[0].ID); err != nil {
		t.Fatalf("FetchTranscript: %v", err)
	}
	if got := fetched.Load(); got != "chat:1" {
		t.Fatalf("expected escaped id to reach the server intact, got %v", got)
	}
}
