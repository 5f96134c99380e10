package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/notechat"
	"pkt.systems/notechat/internal/appconfig"
	"pkt.systems/pslog"
)

const closeTimeout = 5 * time.Second

func addConfigFlag(cmd *cobra.Command, cfgPath *string) {
	cmd.Flags().StringVarP(cfgPath, "config", "c", "", "config file (default ~/.notechat/config.yaml)")
}

func toClientConfig(cfg appconfig.Config, colorOK bool) notechat.Config {
	return notechat.Config{
		Client: cfg.ClientConfig(),
		Backend: notechat.BackendConfig{
			BaseURL:   cfg.Backend.BaseURL,
			APIPrefix: cfg.Backend.APIPrefix,
			Timeout:   time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		},
		Auth: notechat.AuthConfig{
			Token:     cfg.Auth.Token,
			TokenEnv:  cfg.Auth.TokenEnv,
			TokenFile: cfg.Auth.TokenFile,
		},
		Color: cfg.Terminal.Color && colorOK,
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func openClient(cmd *cobra.Command, cfgPath string) (*notechat.Client, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := pslog.Ctx(cmd.Context())
	client, err := notechat.New(toClientConfig(cfg, isTerminal(cmd.OutOrStdout())), notechat.Deps{Logger: logger})
	if err != nil {
		return nil, err
	}
	logger.Debug("client opened", "base_url", cfg.Backend.BaseURL, "state_dir", cfg.StateDir)
	return client, nil
}

func closeClient(cmd *cobra.Command, client *notechat.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := client.Close(ctx); err != nil {
		pslog.Ctx(cmd.Context()).Warn("client close failed", "err", err)
	}
}
