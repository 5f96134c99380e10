package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pkt.systems/notechat"
	"pkt.systems/notechat/internal/command"
	"pkt.systems/notechat/schema"
	"pkt.systems/pslog"
)

const maxInputLine = 1 << 20

func newChatCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (type /help for commands)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer closeClient(cmd, client)
			return runChat(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	addConfigFlag(cmd, &cfgPath)
	return cmd
}

// lockedWriter serializes the prompt loop and the reply printer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func runChat(ctx context.Context, client *notechat.Client, in io.Reader, rawOut io.Writer) error {
	log := pslog.Ctx(ctx)
	out := &lockedWriter{w: rawOut}
	handler := client.CommandHandler(out)

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		if _, _, err := client.CreateAndSelectSession(ctx); err != nil {
			return err
		}
	}
	if _, err := handler.Handle(ctx, "/show"); err != nil {
		_, _ = fmt.Fprintf(out, "error: %v\n", err)
	}

	events, cancel := client.Subscribe()
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		printReplies(client, events, out)
	}()
	defer func() {
		cancel()
		<-printerDone
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxInputLine)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		handled, err := handler.Handle(ctx, line)
		if errors.Is(err, command.ErrQuit) {
			return nil
		}
		if !handled {
			err = client.Send(ctx, command.Unescape(line))
		}
		if err != nil {
			log.Debug("chat input rejected", "err", err)
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// input closed; let a streaming reply finish
	return client.Wait(ctx)
}

// printReplies echoes the reply streaming into the active session. Replies
// continuing in the background stay silent until shown.
func printReplies(client *notechat.Client, events <-chan schema.Event, out io.Writer) {
	var follower *replyFollower
	stop := func() {
		if follower != nil {
			follower.finish()
			follower = nil
		}
	}
	for event := range events {
		active, _ := client.Active()
		if follower != nil && follower.sessionID != active {
			stop()
		}
		if follower == nil && event.Type == schema.EventMessage &&
			event.Message.Role == schema.RoleAssistant && event.SessionID == active {
			_, _ = fmt.Fprintln(out, client.Renderer().Header(schema.RoleAssistant))
			follower = newReplyFollower(client, out, event.SessionID, event.Index)
		}
		if follower == nil {
			continue
		}
		if follower.live() {
			follower.flush()
			continue
		}
		stop()
	}
	stop()
}
