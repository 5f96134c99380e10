package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:8000" || cfg.Backend.APIPrefix != "/api/v1" {
		t.Fatalf("unexpected backend defaults: %+v", cfg.Backend)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("unexpected config version %d", cfg.ConfigVersion)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: http://localhost:9000
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 7
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsInvalidBaseURL(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
backend:
  base_url: example.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "backend.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestLoadRejectsNegativeHistory(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
chat:
  history_max: -1
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "chat.history_max") {
		t.Fatalf("expected history error, got %v", err)
	}
}

func TestLoadOverridesAndExpands(t *testing.T) {
	t.Setenv("NOTECHAT_TEST_TOKEN", "secret")
	path := writeConfig(t, `
config_version: 1
state_dir: /tmp/$UID/notechat
backend:
  base_url: https://notes.example.com
  api_prefix: /v2
auth:
  token: $NOTECHAT_TEST_TOKEN
chat:
  keep_partial_reply: true
  failure_message: reply failed
terminal:
  color: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Token != "secret" {
		t.Fatalf("expected token expansion, got %q", cfg.Auth.Token)
	}
	if strings.Contains(cfg.StateDir, "$UID") {
		t.Fatalf("expected UID expansion, got %q", cfg.StateDir)
	}
	if cfg.Backend.BaseURL != "https://notes.example.com" || cfg.Backend.APIPrefix != "/v2" {
		t.Fatalf("unexpected backend: %+v", cfg.Backend)
	}
	if cfg.Backend.TimeoutSeconds != 30 {
		t.Fatalf("expected default timeout to survive, got %d", cfg.Backend.TimeoutSeconds)
	}
	if !cfg.Chat.KeepPartialReply || cfg.Chat.FailureMessage != "reply failed" || cfg.Terminal.Color {
		t.Fatalf("unexpected chat/terminal: %+v %+v", cfg.Chat, cfg.Terminal)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
