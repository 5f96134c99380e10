// Package mockbackend is an in-memory stand-in for the note assistant API.
// It streams replies in small chunks that deliberately split multi-byte
// characters.
package mockbackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"pkt.systems/notechat/schema"
	"pkt.systems/pslog"
)

// Route identifies one of the backend endpoints.
type Route string

const (
	RouteList       Route = "list"
	RouteCreate     Route = "create"
	RouteTranscript Route = "transcript"
	RouteSend       Route = "send"
)

const (
	defaultPrefix    = "/api/v1"
	defaultChunkSize = 5
)

// Options configures the mock backend.
type Options struct {
	// Token is the accepted bearer token. Empty accepts any non-empty token.
	Token     string
	APIPrefix string
	// ChunkSize is the number of reply bytes flushed per write.
	ChunkSize  int
	ChunkDelay time.Duration
	// FailAfterChunks aborts the reply connection after that many chunks.
	FailAfterChunks int
	// Reply produces the assistant reply for a message.
	Reply func(message string) string
}

type session struct {
	info     schema.Session
	messages []schema.Message
}

// Server implements the chat endpoints in memory.
type Server struct {
	opts     Options
	mu       sync.Mutex
	sessions []*session
	nextID   int
	failures map[Route]int
	fetches  map[schema.SessionID]int
	sends    int
	gate     chan struct{}
}

// New constructs a server with no sessions.
func New(opts Options) *Server {
	if opts.APIPrefix == "" {
		opts.APIPrefix = defaultPrefix
	}
	opts.APIPrefix = "/" + strings.Trim(opts.APIPrefix, "/")
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Reply == nil {
		opts.Reply = DefaultReply
	}
	return &Server{
		opts:     opts,
		nextID:   1,
		failures: map[Route]int{},
		fetches:  map[schema.SessionID]int{},
	}
}

// DefaultReply answers in Korean and English so streamed chunks split
// multi-byte characters.
func DefaultReply(message string) string {
	return fmt.Sprintf("노트를 확인했어요. You said: %s", message)
}

// Seed adds a session with an existing transcript and returns it. Seeded
// sessions are newer than the ones before them.
func (s *Server) Seed(title string, messages ...schema.Message) schema.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(title, messages)
}

// Fail makes every request to route answer with status until cleared with
// status 0.
func (s *Server) Fail(route Route, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Hold makes replies pause after their first chunk until the returned
// release function is called.
func (s *Server) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// TranscriptFetches reports how many times a transcript was requested.
func (s *Server) TranscriptFetches(id schema.SessionID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[id]
}

// Sends reports how many reply requests were accepted.
func (s *Server) Sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

// Messages returns the stored transcript of a session.
func (s *Server) Messages(id schema.SessionID) []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.findLocked(id); sess != nil {
		return append([]schema.Message(nil), sess.messages...)
	}
	return nil
}

// Handler returns the HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	prefix := s.opts.APIPrefix
	mux.HandleFunc("GET "+prefix+"/chat/sessions", s.requireToken(s.handleList))
	mux.HandleFunc("POST "+prefix+"/chat/sessions", s.requireToken(s.handleCreate))
	mux.HandleFunc("GET "+prefix+"/chat/sessions/{id}", s.requireToken(s.handleTranscript))
	mux.HandleFunc("POST "+prefix+"/chat/sessions/{id}", s.requireToken(s.handleSend))
	return withRequestLogging(mux)
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" || (s.opts.Token != "" && token != s.opts.Token) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		next(w, r)
	}
}

func (s *Server) failure(route Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[route]
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if status := s.failure(RouteList); status != 0 {
		writeError(w, status, "listing failed")
		return
	}
	s.mu.Lock()
	out := make([]schema.Session, 0, len(s.sessions))
	for i := len(s.sessions) - 1; i >= 0; i-- {
		out = append(out, s.sessions[i].info)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if status := s.failure(RouteCreate); status != 0 {
		writeError(w, status, "create failed")
		return
	}
	s.mu.Lock()
	info := s.createLocked(schema.DefaultSessionTitle, nil)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	s.mu.Lock()
	s.fetches[id]++
	s.mu.Unlock()
	if status := s.failure(RouteTranscript); status != 0 {
		writeError(w, status, "transcript failed")
		return
	}
	messages := s.Messages(id)
	if messages == nil && !s.exists(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if messages == nil {
		messages = []schema.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendPayload struct {
	Message string `json:"message"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	id := schema.SessionID(r.PathValue("id"))
	if status := s.failure(RouteSend); status != 0 {
		writeError(w, status, "send failed")
		return
	}
	if !s.exists(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	var payload sendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid payload")
		return
	}
	// the user message is committed before the reply streams
	s.mu.Lock()
	s.sends++
	gate := s.gate
	if sess := s.findLocked(id); sess != nil {
		sess.messages = append(sess.messages, schema.Message{Role: schema.RoleUser, Content: payload.Message})
	}
	s.mu.Unlock()

	reply := []byte(s.opts.Reply(payload.Message))
	log := pslog.Ctx(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	chunks := 0
	for offset := 0; offset < len(reply); offset += s.opts.ChunkSize {
		if s.opts.FailAfterChunks > 0 && chunks >= s.opts.FailAfterChunks {
			log.Debug("mock reply aborted", "session", string(id), "chunks", chunks)
			panic(http.ErrAbortHandler)
		}
		end := min(offset+s.opts.ChunkSize, len(reply))
		if _, err := w.Write(reply[offset:end]); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		chunks++
		if chunks == 1 && gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if s.opts.ChunkDelay > 0 {
			select {
			case <-time.After(s.opts.ChunkDelay):
			case <-r.Context().Done():
				return
			}
		}
	}

	// the reply is stored only after the stream completed, and never blank
	if strings.TrimSpace(string(reply)) == "" {
		return
	}
	s.mu.Lock()
	if sess := s.findLocked(id); sess != nil {
		sess.messages = append(sess.messages, schema.Message{Role: schema.RoleAssistant, Content: string(reply)})
	}
	s.mu.Unlock()
}

func (s *Server) exists(id schema.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id) != nil
}

func (s *Server) findLocked(id schema.SessionID) *session {
	for _, sess := range s.sessions {
		if sess.info.ID == id {
			return sess
		}
	}
	return nil
}

func (s *Server) createLocked(title string, messages []schema.Message) schema.Session {
	info := schema.Session{ID: schema.SessionID(strconv.Itoa(s.nextID)), Title: title}
	s.nextID++
	s.sessions = append(s.sessions, &session{info: info, messages: append([]schema.Message(nil), messages...)})
	return info
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
