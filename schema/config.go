package schema

import "errors"

// ClientConfig defines defaults and limits for the chat controller.
type ClientConfig struct {
	// StateDir holds persisted client state. Empty disables persistence.
	StateDir string
	// FailureMessage replaces the placeholder when a reply stream fails.
	FailureMessage string
	// KeepPartialReply keeps text received before a stream failure and appends
	// FailureMessage instead of discarding it.
	KeepPartialReply bool
	HistoryMax       int
	StreamReadSize   int
}

// DefaultFailureMessage is written into the placeholder when a reply fails.
const DefaultFailureMessage = "AI 응답을 가져오는데 실패했습니다."

const (
	// DefaultHistoryMax is the default prompt history size.
	DefaultHistoryMax = 200
	// DefaultStreamReadSize is the default read size for reply bodies.
	DefaultStreamReadSize = 4096
)

// NormalizeClientConfig applies defaults and validates the config.
func NormalizeClientConfig(cfg ClientConfig) (ClientConfig, error) {
	if cfg.HistoryMax < 0 {
		return ClientConfig{}, errors.New("history max must not be negative")
	}
	if cfg.StreamReadSize < 0 {
		return ClientConfig{}, errors.New("stream read size must not be negative")
	}
	if cfg.FailureMessage == "" {
		cfg.FailureMessage = DefaultFailureMessage
	}
	if cfg.HistoryMax == 0 {
		cfg.HistoryMax = DefaultHistoryMax
	}
	if cfg.StreamReadSize == 0 {
		cfg.StreamReadSize = DefaultStreamReadSize
	}
	return cfg, nil
}
