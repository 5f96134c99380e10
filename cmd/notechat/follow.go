package main

import (
	"fmt"
	"io"
	"strings"

	"pkt.systems/notechat"
	"pkt.systems/notechat/schema"
)

// replyFollower prints a streaming reply from the transcript. Events only
// wake it up; the bus may drop them, the transcript never does.
type replyFollower struct {
	client    *notechat.Client
	out       io.Writer
	sessionID schema.SessionID
	index     int
	printed   string
}

func newReplyFollower(client *notechat.Client, out io.Writer, id schema.SessionID, index int) *replyFollower {
	return &replyFollower{client: client, out: out, sessionID: id, index: index}
}

// content returns the reply text and the transcript it was read from.
func (f *replyFollower) content() (string, bool) {
	view := f.client.Transcript(f.sessionID)
	if f.index < 0 || f.index >= len(view.Messages) {
		return "", false
	}
	return view.Messages[f.index].Content, true
}

// flush prints whatever the reply gained since the last call. A reply that
// was rewritten after a failure is printed again on a fresh line.
func (f *replyFollower) flush() {
	content, ok := f.content()
	if !ok || content == f.printed {
		return
	}
	if strings.HasPrefix(content, f.printed) {
		_, _ = fmt.Fprint(f.out, content[len(f.printed):])
	} else {
		_, _ = fmt.Fprint(f.out, "\n"+content)
	}
	f.printed = content
}

// live reports whether the followed reply is still streaming.
func (f *replyFollower) live() bool {
	state, id := f.client.StreamState()
	return state != schema.StreamIdle && id == f.sessionID
}

// finish flushes the remaining text and ends the reply line.
func (f *replyFollower) finish() {
	f.flush()
	_, _ = fmt.Fprintln(f.out)
}
