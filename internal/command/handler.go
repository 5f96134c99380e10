// Package command implements the interactive slash commands.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pkt.systems/notechat/core"
	"pkt.systems/notechat/internal/format"
	"pkt.systems/notechat/internal/logx"
	"pkt.systems/notechat/internal/version"
	"pkt.systems/notechat/schema"
)

// ErrQuit is returned by Handle when the user asked to leave.
var ErrQuit = errors.New("quit")

// Handler routes slash commands to service operations.
type Handler struct {
	service  core.Service
	renderer *format.Renderer
	out      io.Writer
}

// NewHandler constructs a command handler writing to out.
func NewHandler(service core.Service, renderer *format.Renderer, out io.Writer) *Handler {
	if renderer == nil {
		renderer = format.NewRenderer(false)
	}
	return &Handler{service: service, renderer: renderer, out: out}
}

// Handle executes input if it is a slash command. It reports false for
// plain messages, which the caller sends instead.
func (h *Handler) Handle(ctx context.Context, input string) (bool, error) {
	cmd, ok := Parse(input)
	if !ok {
		return false, nil
	}
	log := logx.Ctx(ctx).With("command", cmd.Name, "args", len(cmd.Args))
	log.Debug("command slash request")
	switch cmd.Name {
	case "":
		return true, errors.New("invalid command")
	case "sessions", "ls":
		return true, h.handleSessions(ctx)
	case "new":
		return true, h.handleNew(ctx)
	case "switch", "sw":
		return true, h.handleSwitch(ctx, cmd)
	case "show":
		return true, h.handleShow()
	case "history":
		return true, h.handleHistory()
	case "cancel", "stop":
		return true, h.handleCancel()
	case "help", "?":
		h.lines(helpLines()...)
		return true, nil
	case "version":
		h.lines(version.Current().String())
		return true, nil
	case "quit", "exit", "q":
		return true, ErrQuit
	default:
		log.Warn("command slash rejected", "reason", "unknown")
		return true, fmt.Errorf("unknown command: /%s", cmd.Name)
	}
}

func (h *Handler) handleSessions(ctx context.Context) error {
	sessions, err := h.service.ListSessions(ctx)
	if err != nil {
		return err
	}
	active, _ := h.service.Active()
	h.lines(h.renderer.Sessions(sessions, active)...)
	return nil
}

func (h *Handler) handleNew(ctx context.Context) error {
	session, view, err := h.service.CreateAndSelectSession(ctx)
	if err != nil && session.ID == "" {
		return err
	}
	h.lines(fmt.Sprintf("created session %s", session.ID))
	h.transcript(view)
	return nil
}

func (h *Handler) handleSwitch(ctx context.Context, cmd Command) error {
	if len(cmd.Args) != 1 {
		return errors.New("usage: /switch <session-id>")
	}
	id, err := schema.ParseSessionID(cmd.Args[0])
	if err != nil {
		return err
	}
	view, err := h.service.SelectSession(ctx, id)
	if errors.Is(err, schema.ErrSessionNotFound) {
		return err
	}
	h.transcript(view)
	if state, streaming := h.service.StreamState(); state != schema.StreamIdle && streaming != id {
		h.lines(fmt.Sprintf("(a reply is still streaming into session %s)", streaming))
	}
	return nil
}

func (h *Handler) handleShow() error {
	view, err := h.service.ActiveTranscript()
	if err != nil {
		return err
	}
	h.transcript(view)
	return nil
}

func (h *Handler) handleHistory() error {
	entries := h.service.History()
	if len(entries) == 0 {
		h.lines("history is empty")
		return nil
	}
	width := len(fmt.Sprint(len(entries)))
	for i, entry := range entries {
		h.lines(fmt.Sprintf("%*d  %s", width, i+1, firstLine(entry)))
	}
	return nil
}

func (h *Handler) handleCancel() error {
	if h.service.CancelStream() {
		h.lines("reply cancelled")
		return nil
	}
	h.lines("no reply in progress")
	return nil
}

func (h *Handler) transcript(view core.TranscriptView) {
	switch {
	case view.Err != nil && !view.Loaded:
		h.lines(fmt.Sprintf("transcript of session %s is unavailable: %v", view.SessionID, view.Err),
			fmt.Sprintf("run /switch %s to retry", view.SessionID))
	case len(view.Messages) == 0:
		h.lines(fmt.Sprintf("session %s is empty", view.SessionID))
	default:
		h.lines(h.renderer.Transcript(view.Messages)...)
	}
}

func (h *Handler) lines(lines ...string) {
	if h.out == nil {
		return
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(h.out, line)
	}
}

func helpLines() []string {
	entries := [][2]string{
		{"/sessions", "list sessions (newest first)"},
		{"/new", "create a session and switch to it"},
		{"/switch <id>", "switch to a session"},
		{"/show", "print the active transcript"},
		{"/history", "list previously sent messages"},
		{"/cancel", "stop the reply that is streaming"},
		{"/version", "print the version"},
		{"/quit", "leave"},
	}
	width := 0
	for _, entry := range entries {
		width = max(width, len(entry[0]))
	}
	lines := []string{"commands:"}
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("  %-*s  %s", width, entry[0], entry[1]))
	}
	return append(lines, "anything else is sent as a message; start with // to send a leading /")
}

func firstLine(text string) string {
	line, _, found := strings.Cut(text, "\n")
	if found {
		return line + " …"
	}
	return line
}
