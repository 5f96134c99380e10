package backend

import (
	"net/http"
	"time"

	"pkt.systems/notechat/internal/logx"
)

type loggingTransport struct {
	next http.RoundTripper
}

func newLoggingTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next}
}

// RoundTrip logs the request outcome. The duration covers the response
// headers only; streamed bodies keep flowing after this returns.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := logx.WithRequest(logx.Ctx(req.Context()), req.Header.Get(requestIDHeader))
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		log.Warn("backend request failed", "method", req.Method, "path", req.URL.Path, "duration", time.Since(start), "err", err)
		return nil, err
	}
	fields := []any{
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"content_length", resp.ContentLength,
		"duration", time.Since(start),
	}
	switch {
	case resp.StatusCode >= 500:
		log.Warn("backend request", fields...)
	case resp.StatusCode >= 400:
		log.Info("backend request", fields...)
	default:
		log.Debug("backend request", fields...)
	}
	return resp, nil
}
