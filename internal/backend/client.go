// Package backend talks to the note assistant HTTP API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"pkt.systems/notechat/internal/logx"
	"pkt.systems/notechat/schema"
)

const (
	// DefaultBaseURL is the backend address used when none is configured.
	DefaultBaseURL = "http://127.0.0.1:8000"
	// DefaultAPIPrefix is prepended to every endpoint path.
	DefaultAPIPrefix = "/api/v1"
	// DefaultTimeout bounds non-streaming calls.
	DefaultTimeout = 30 * time.Second

	requestIDHeader = "X-Request-ID"
	errorBodyLimit  = 4096
	jsonBodyLimit   = 8 << 20
)

// Config configures the backend client.
type Config struct {
	BaseURL   string
	APIPrefix string
	// Timeout applies to list/create/fetch calls. Reply streams are bounded
	// only by their context.
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client is a thin HTTP client for the chat endpoints.
type Client struct {
	endpoint     string
	creds        CredentialSource
	httpClient   *http.Client
	streamClient *http.Client
}

// New constructs a client. creds may be nil, in which case every call fails
// with schema.ErrAuthMissing.
func New(cfg Config, creds CredentialSource) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", base)
	}
	prefix := strings.TrimSpace(cfg.APIPrefix)
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := newLoggingTransport(cfg.Transport)
	if creds == nil {
		creds = Chain(nil)
	}
	return &Client{
		endpoint:     strings.TrimRight(base, "/") + strings.TrimRight(prefix, "/"),
		creds:        creds,
		httpClient:   &http.Client{Timeout: timeout, Transport: transport},
		streamClient: &http.Client{Transport: transport},
	}, nil
}

// Authorized reports whether a credential is currently available. It performs
// no network I/O.
func (c *Client) Authorized(ctx context.Context) error {
	_, err := c.creds.Token(ctx)
	return err
}

// ListSessions returns the user's sessions, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]schema.Session, error) {
	var sessions []schema.Session
	if err := c.doJSON(ctx, "list sessions", http.MethodGet, "/chat/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []schema.Session{}
	}
	return sessions, nil
}

// CreateSession creates a new empty session.
func (c *Client) CreateSession(ctx context.Context) (schema.Session, error) {
	var session schema.Session
	if err := c.doJSON(ctx, "create session", http.MethodPost, "/chat/sessions", nil, &session); err != nil {
		return schema.Session{}, err
	}
	return session, nil
}

// FetchTranscript returns the stored messages of a session in order.
func (c *Client) FetchTranscript(ctx context.Context, id schema.SessionID) ([]schema.Message, error) {
	var messages []schema.Message
	if err := c.doJSON(ctx, "fetch transcript", http.MethodGet, sessionPath(id), nil, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []schema.Message{}
	}
	return messages, nil
}

type sendRequest struct {
	Message string `json:"message"`
}

// SendMessage posts a user message and returns the streamed reply body. The
// caller owns the body and must close it.
func (c *Client) SendMessage(ctx context.Context, id schema.SessionID, text string) (io.ReadCloser, error) {
	const op = "send message"
	req, err := c.newRequest(ctx, op, http.MethodPost, sessionPath(id), sendRequest{Message: text})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, schema.NewTransportError(op, err)
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	req, err := c.newRequest(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return schema.NewTransportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(op, resp); err != nil {
		return err
	}
	data, err := readAllLimit(resp.Body, jsonBodyLimit)
	if err != nil {
		return schema.NewTransportError(op, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &schema.DecodeError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, op, method, path string, body any) (*http.Request, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(requestIDHeader, requestID(ctx))
	return req, nil
}

func requestID(ctx context.Context) string {
	if id := logx.RequestID(ctx); id != "" {
		return id
	}
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func sessionPath(id schema.SessionID) string {
	return "/chat/sessions/" + url.PathEscape(string(id))
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := readAllLimit(resp.Body, errorBodyLimit)
	_ = resp.Body.Close()
	return &schema.TransportError{
		Op:     op,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(data)),
	}
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return data, err
	}
	if int64(len(data)) > max {
		return data[:max], errors.New("response body too large")
	}
	return data, nil
}
