package main

import (
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/notechat/internal/appconfig"
	"pkt.systems/notechat/internal/mockbackend"
	"pkt.systems/notechat/schema"
	"pkt.systems/pslog"
)

func newMockBackendCmd() *cobra.Command {
	var cfgPath string
	var addr string
	var failAfter int
	var seed bool
	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Serve an in-memory note assistant API for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Mock.Addr
			}
			if !cmd.Flags().Changed("fail-after") {
				failAfter = cfg.Mock.FailAfterChunks
			}
			opts := mockOptions(cfg, failAfter)
			server := mockbackend.New(opts)
			if seed {
				server.Seed("노트 정리",
					schema.Message{Role: schema.RoleUser, Content: "지난주 회의 노트를 요약해줘"},
					schema.Message{Role: schema.RoleAssistant, Content: "**요약**\n- 일정 확정\n- 예산 검토"},
				)
			}
			logger.Info("mock backend listening", "addr", addr, "prefix", opts.APIPrefix, "chunk_size", opts.ChunkSize, "fail_after", opts.FailAfterChunks)
			return mockbackend.ListenAndServe(cmd.Context(), addr, server.Handler())
		},
	}
	addConfigFlag(cmd, &cfgPath)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().IntVar(&failAfter, "fail-after", 0, "abort every reply after this many chunks")
	cmd.Flags().BoolVar(&seed, "seed", true, "start with a sample session")
	return cmd
}

// mockOptions serves the mock under the prefix the client is configured with.
func mockOptions(cfg appconfig.Config, failAfter int) mockbackend.Options {
	return mockbackend.Options{
		Token:           cfg.Mock.Token,
		APIPrefix:       cfg.Backend.APIPrefix,
		ChunkSize:       cfg.Mock.ChunkSize,
		ChunkDelay:      time.Duration(cfg.Mock.ChunkDelayMillis) * time.Millisecond,
		FailAfterChunks: failAfter,
	}
}
