package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("backend.base_url", cfg.Backend.BaseURL)
	v.SetDefault("backend.api_prefix", cfg.Backend.APIPrefix)
	v.SetDefault("backend.timeout_seconds", cfg.Backend.TimeoutSeconds)
	v.SetDefault("auth.token", cfg.Auth.Token)
	v.SetDefault("auth.token_env", cfg.Auth.TokenEnv)
	v.SetDefault("auth.token_file", cfg.Auth.TokenFile)
	v.SetDefault("chat.failure_message", cfg.Chat.FailureMessage)
	v.SetDefault("chat.keep_partial_reply", cfg.Chat.KeepPartialReply)
	v.SetDefault("chat.history_max", cfg.Chat.HistoryMax)
	v.SetDefault("chat.stream_read_size", cfg.Chat.StreamReadSize)
	v.SetDefault("terminal.color", cfg.Terminal.Color)
	v.SetDefault("mock.addr", cfg.Mock.Addr)
	v.SetDefault("mock.token", cfg.Mock.Token)
	v.SetDefault("mock.chunk_size", cfg.Mock.ChunkSize)
	v.SetDefault("mock.chunk_delay_ms", cfg.Mock.ChunkDelayMillis)
	v.SetDefault("mock.fail_after_chunks", cfg.Mock.FailAfterChunks)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateBackendConfig(cfg.Backend); err != nil {
		return Config{}, err
	}
	if err := validateChatConfig(cfg.Chat); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateBackendConfig(cfg BackendConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("backend.base_url must include http(s) scheme and host (e.g. https://example.com)")
	}
	prefix := strings.TrimSpace(cfg.APIPrefix)
	if strings.Contains(prefix, "://") {
		return fmt.Errorf("backend.api_prefix must be a path prefix, not a URL")
	}
	if strings.ContainsAny(prefix, "?#") {
		return fmt.Errorf("backend.api_prefix must not include query or fragment")
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("backend.timeout_seconds must not be negative")
	}
	return nil
}

func validateChatConfig(cfg ChatConfig) error {
	if cfg.HistoryMax < 0 {
		return fmt.Errorf("chat.history_max must not be negative")
	}
	if cfg.StreamReadSize < 0 {
		return fmt.Errorf("chat.stream_read_size must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Backend.BaseURL = expandEnv(cfg.Backend.BaseURL)
	cfg.Auth.Token = expandEnv(cfg.Auth.Token)
	cfg.Auth.TokenFile = expandEnv(cfg.Auth.TokenFile)
	cfg.Mock.Token = expandEnv(cfg.Mock.Token)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
