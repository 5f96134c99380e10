package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"pkt.systems/notechat/schema"
)

// CredentialSource supplies the bearer token for backend requests. A source
// with nothing to offer returns schema.ErrAuthMissing.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, typically from the config file.
type StaticToken string

// Token returns the token or ErrAuthMissing when empty.
func (s StaticToken) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", schema.ErrAuthMissing
	}
	return token, nil
}

// EnvToken reads the token from an environment variable on every call.
type EnvToken struct {
	Name string
}

// Token implements CredentialSource.
func (e EnvToken) Token(context.Context) (string, error) {
	if e.Name == "" {
		return "", schema.ErrAuthMissing
	}
	token := strings.TrimSpace(os.Getenv(e.Name))
	if token == "" {
		return "", schema.ErrAuthMissing
	}
	return token, nil
}

// FileToken reads the token from a file on every call so a login helper can
// rotate it underneath a running client.
type FileToken struct {
	Path string
}

// Token implements CredentialSource.
func (f FileToken) Token(context.Context) (string, error) {
	if f.Path == "" {
		return "", schema.ErrAuthMissing
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", schema.ErrAuthMissing
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", schema.ErrAuthMissing
	}
	return token, nil
}

// Chain returns the first token any source provides.
type Chain []CredentialSource

// Token implements CredentialSource.
func (c Chain) Token(ctx context.Context) (string, error) {
	for _, source := range c {
		if source == nil {
			continue
		}
		token, err := source.Token(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, schema.ErrAuthMissing) {
			return "", err
		}
	}
	return "", schema.ErrAuthMissing
}
