package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/notechat"
	"pkt.systems/notechat/schema"
)

func newSendCmd() *cobra.Command {
	var cfgPath string
	var sessionID string
	var newSession bool
	cmd := &cobra.Command{
		Use:   "send [--session <id> | --new] <message...>",
		Short: "Send a message and print the streamed reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if newSession && sessionID != "" {
				return errors.New("--session and --new are mutually exclusive")
			}
			client, err := openClient(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer closeClient(cmd, client)
			return runSend(cmd, client, sessionID, newSession, strings.Join(args, " "))
		},
	}
	addConfigFlag(cmd, &cfgPath)
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to send to (default: the active session)")
	cmd.Flags().BoolVar(&newSession, "new", false, "create a session for the message")
	return cmd
}

func runSend(cmd *cobra.Command, client *notechat.Client, sessionID string, newSession bool, text string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if strings.TrimSpace(text) == "" {
		return schema.ErrEmptyMessage
	}
	var args []string
	if sessionID != "" {
		args = []string{sessionID}
	}
	if newSession {
		if _, err := client.ListSessions(ctx); err != nil {
			return err
		}
		if _, _, err := client.CreateAndSelectSession(ctx); err != nil {
			return err
		}
	} else if _, err := selectForCommand(cmd, client, args); err != nil {
		return err
	}

	events, cancel := client.Subscribe()
	defer cancel()
	if err := client.Send(ctx, text); err != nil {
		return err
	}
	id, _ := client.Active()
	follower := newReplyFollower(client, out, id, len(client.Transcript(id).Messages)-1)

	done := make(chan error, 1)
	go func() { done <- client.Wait(ctx) }()
	for {
		select {
		case <-events:
			follower.flush()
		case err := <-done:
			if err != nil {
				client.CancelStream()
				return err
			}
			follower.finish()
			if replyErr := client.Transcript(id).ReplyErr; replyErr != nil {
				return fmt.Errorf("reply failed: %w", replyErr)
			}
			return nil
		case <-ctx.Done():
			client.CancelStream()
			return ctx.Err()
		}
	}
}
