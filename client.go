// Package notechat composes the chat controller with its backend client,
// credential sources and event bus.
package notechat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"pkt.systems/notechat/core"
	"pkt.systems/notechat/internal/backend"
	"pkt.systems/notechat/internal/command"
	"pkt.systems/notechat/internal/eventbus"
	"pkt.systems/notechat/internal/format"
	"pkt.systems/notechat/schema"
	"pkt.systems/pslog"
)

// Config configures the composed client.
type Config struct {
	Client  schema.ClientConfig
	Backend BackendConfig
	Auth    AuthConfig
	// Color enables ANSI styling in rendered output.
	Color bool
}

// BackendConfig locates the chat backend.
type BackendConfig struct {
	BaseURL   string
	APIPrefix string
	Timeout   time.Duration
}

// AuthConfig lists credential sources in lookup order.
type AuthConfig struct {
	Token     string
	TokenEnv  string
	TokenFile string
}

// Deps captures optional dependencies. Zero values are replaced with the
// configured defaults.
type Deps struct {
	Logger      pslog.Logger
	EventSink   core.EventSink
	Credentials backend.CredentialSource
	Transport   http.RoundTripper
}

// Client is a ready-to-use chat controller.
type Client struct {
	core.Service
	bus      *eventbus.Bus
	renderer *format.Renderer
	logger   pslog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New constructs a Client.
func New(cfg Config, deps Deps) (*Client, error) {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	creds := deps.Credentials
	if creds == nil {
		creds = credentialChain(cfg.Auth)
	}
	api, err := backend.New(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		APIPrefix: cfg.Backend.APIPrefix,
		Timeout:   cfg.Backend.Timeout,
		Transport: deps.Transport,
	}, creds)
	if err != nil {
		return nil, err
	}
	bus := eventbus.New(logger)
	var sink core.EventSink = bus
	if deps.EventSink != nil {
		sink = eventFanout{sinks: []core.EventSink{deps.EventSink, bus}}
	}
	service, err := core.NewService(cfg.Client, core.ServiceDeps{
		Backend:   api,
		EventSink: sink,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("client ready", "base_url", cfg.Backend.BaseURL, "persist", cfg.Client.StateDir != "")
	return &Client{
		Service:  service,
		bus:      bus,
		renderer: format.NewRenderer(cfg.Color),
		logger:   logger,
	}, nil
}

// Subscribe registers an event subscriber. The returned cancel function
// must be called when the subscriber is done.
func (c *Client) Subscribe() (<-chan schema.Event, func()) {
	return c.bus.Subscribe()
}

// Renderer returns the renderer matching the configured color mode.
func (c *Client) Renderer() *format.Renderer {
	return c.renderer
}

// CommandHandler returns a slash command handler writing to out.
func (c *Client) CommandHandler(out io.Writer) *command.Handler {
	return command.NewHandler(c.Service, c.renderer, out)
}

// Close cancels any streaming reply and persists client state. It is safe to
// call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		c.closeErr = c.Service.Close(ctx)
		if c.closeErr != nil && !errors.Is(c.closeErr, context.Canceled) {
			c.logger.Warn("client close incomplete", "err", c.closeErr)
		}
	})
	return c.closeErr
}

func credentialChain(cfg AuthConfig) backend.Chain {
	var chain backend.Chain
	if cfg.Token != "" {
		chain = append(chain, backend.StaticToken(cfg.Token))
	}
	if cfg.TokenEnv != "" {
		chain = append(chain, backend.EnvToken{Name: cfg.TokenEnv})
	}
	if cfg.TokenFile != "" {
		chain = append(chain, backend.FileToken{Path: cfg.TokenFile})
	}
	return chain
}
