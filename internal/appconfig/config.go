package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/notechat/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string         `mapstructure:"state_dir" yaml:"state_dir"`
	Backend       BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Auth          AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Chat          ChatConfig     `mapstructure:"chat" yaml:"chat"`
	Terminal      TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Mock          MockConfig     `mapstructure:"mock" yaml:"mock"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// BackendConfig locates the chat backend.
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	APIPrefix      string `mapstructure:"api_prefix" yaml:"api_prefix"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// AuthConfig lists the credential sources, tried in the order token,
// token_env, token_file.
type AuthConfig struct {
	Token     string `mapstructure:"token" yaml:"token"`
	TokenEnv  string `mapstructure:"token_env" yaml:"token_env"`
	TokenFile string `mapstructure:"token_file" yaml:"token_file"`
}

// ChatConfig controls the reply assembler and prompt history.
type ChatConfig struct {
	FailureMessage   string `mapstructure:"failure_message" yaml:"failure_message"`
	KeepPartialReply bool   `mapstructure:"keep_partial_reply" yaml:"keep_partial_reply"`
	HistoryMax       int    `mapstructure:"history_max" yaml:"history_max"`
	StreamReadSize   int    `mapstructure:"stream_read_size" yaml:"stream_read_size"`
}

// TerminalConfig controls output rendering.
type TerminalConfig struct {
	Color bool `mapstructure:"color" yaml:"color"`
}

// MockConfig configures the bundled mock backend.
type MockConfig struct {
	Addr             string `mapstructure:"addr" yaml:"addr"`
	Token            string `mapstructure:"token" yaml:"token"`
	ChunkSize        int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkDelayMillis int    `mapstructure:"chunk_delay_ms" yaml:"chunk_delay_ms"`
	FailAfterChunks  int    `mapstructure:"fail_after_chunks" yaml:"fail_after_chunks"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".notechat", "state"),
		Backend: BackendConfig{
			BaseURL:        "http://127.0.0.1:8000",
			APIPrefix:      "/api/v1",
			TimeoutSeconds: 30,
		},
		Auth: AuthConfig{
			Token:     "",
			TokenEnv:  "NOTECHAT_TOKEN",
			TokenFile: filepath.Join(home, ".notechat", "token"),
		},
		Chat: ChatConfig{
			FailureMessage:   schema.DefaultFailureMessage,
			KeepPartialReply: false,
			HistoryMax:       schema.DefaultHistoryMax,
			StreamReadSize:   schema.DefaultStreamReadSize,
		},
		Terminal: TerminalConfig{
			Color: true,
		},
		Mock: MockConfig{
			Addr:             "127.0.0.1:8000",
			Token:            "",
			ChunkSize:        5,
			ChunkDelayMillis: 30,
			FailAfterChunks:  0,
		},
	}, nil
}

// ClientConfig maps the chat settings onto the controller config.
func (c Config) ClientConfig() schema.ClientConfig {
	return schema.ClientConfig{
		StateDir:         c.StateDir,
		FailureMessage:   c.Chat.FailureMessage,
		KeepPartialReply: c.Chat.KeepPartialReply,
		HistoryMax:       c.Chat.HistoryMax,
		StreamReadSize:   c.Chat.StreamReadSize,
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".notechat", "config.yaml"), nil
}
