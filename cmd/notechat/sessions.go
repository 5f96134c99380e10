package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/notechat"
	"pkt.systems/notechat/core"
	"pkt.systems/notechat/schema"
)

func newSessionsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls"},
		Short:   "List chat sessions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer closeClient(cmd, client)
			sessions, err := client.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			active, _ := client.Active()
			return writeLines(cmd.OutOrStdout(), client.Renderer().Sessions(sessions, active))
		},
	}
	addConfigFlag(cmd, &cfgPath)
	return cmd
}

func newNewCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer closeClient(cmd, client)
			if _, err := client.ListSessions(cmd.Context()); err != nil {
				return err
			}
			session, _, err := client.CreateAndSelectSession(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", session.ID, session.Title)
			return err
		},
	}
	addConfigFlag(cmd, &cfgPath)
	return cmd
}

func newShowCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Print a transcript (the active session by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := openClient(cmd, cfgPath)
			if err != nil {
				return err
			}
			defer closeClient(cmd, client)
			view, err := selectForCommand(cmd, client, args)
			if err != nil {
				return err
			}
			return writeTranscript(cmd.OutOrStdout(), client, view)
		},
	}
	addConfigFlag(cmd, &cfgPath)
	return cmd
}

// selectForCommand lists sessions and selects args[0] when given. Without an
// argument the restored or newest session stays selected.
func selectForCommand(cmd *cobra.Command, client *notechat.Client, args []string) (core.TranscriptView, error) {
	ctx := cmd.Context()
	if _, err := client.ListSessions(ctx); err != nil {
		return core.TranscriptView{}, err
	}
	if len(args) == 0 {
		view, err := client.ActiveTranscript()
		if err != nil {
			return view, err
		}
		if view.Err != nil {
			return view, fmt.Errorf("%w: %v", schema.ErrTranscriptUnavailable, view.Err)
		}
		return view, nil
	}
	id, err := schema.ParseSessionID(args[0])
	if err != nil {
		return core.TranscriptView{}, err
	}
	return client.SelectSession(ctx, id)
}

func writeTranscript(out io.Writer, client *notechat.Client, view core.TranscriptView) error {
	if len(view.Messages) == 0 {
		_, err := fmt.Fprintf(out, "session %s is empty\n", view.SessionID)
		return err
	}
	return writeLines(out, client.Renderer().Transcript(view.Messages))
}

func writeLines(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
