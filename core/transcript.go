package core

import "pkt.systems/notechat/schema"

// transcript is the cached message history of one session.
type transcript struct {
	messages []schema.Message
	loaded   bool
	err      error
	// replyErr is why the latest reply failed; a new send clears it.
	replyErr error
	// loading is closed when an in-flight fetch finishes.
	loading chan struct{}
}

// TranscriptView is a copy of a session's transcript. Err is set when the
// last load failed and nothing was loaded yet; Loaded is false until a load
// succeeds. ReplyErr is set when the latest reply in the session failed.
type TranscriptView struct {
	SessionID schema.SessionID
	Messages  []schema.Message
	Loaded    bool
	Err       error
	ReplyErr  error
}

func (t *transcript) view(id schema.SessionID) TranscriptView {
	if t == nil {
		return TranscriptView{SessionID: id}
	}
	return TranscriptView{
		SessionID: id,
		Messages:  append([]schema.Message(nil), t.messages...),
		Loaded:    t.loaded,
		Err:       t.err,
		ReplyErr:  t.replyErr,
	}
}

func (t *transcript) append(msg schema.Message) int {
	t.messages = append(t.messages, msg)
	return len(t.messages) - 1
}
