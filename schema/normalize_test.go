package schema

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseSessionID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  SessionID
		valid bool
	}{
		{"numeric", "42", "42", true},
		{"uuid", "0b9c2f8e-6d1a-4c3b-9a55-1f2e3d4c5b6a", "0b9c2f8e-6d1a-4c3b-9a55-1f2e3d4c5b6a", true},
		{"trimmed", " 7 ", "7", true},
		{"mixed", "Chat_1.a", "Chat_1.a", true},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
		{"slash", "1/2", "", false},
		{"space", "1 2", "", false},
		{"unicode", "챗", "", false},
	}

	for _, tc := range cases {
		got, err := ParseSessionID(tc.input)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid {
			if !errors.Is(err, ErrInvalidSession) {
				t.Fatalf("case %q expected ErrInvalidSession, got %v", tc.name, err)
			}
			continue
		}
		if got != tc.want {
			t.Fatalf("case %q expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestSessionIDAcceptsNumbersAndStrings(t *testing.T) {
	var sessions []Session
	payload := `[{"id": 12, "title": "새로운 챗"}, {"id": "abc-1", "title": ""}]`
	if err := json.Unmarshal([]byte(payload), &sessions); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "12" || sessions[0].Title != DefaultSessionTitle {
		t.Fatalf("unexpected first session: %+v", sessions[0])
	}
	if sessions[1].ID != "abc-1" || sessions[1].Title != "" {
		t.Fatalf("unexpected second session: %+v", sessions[1])
	}

	data, err := json.Marshal(sessions[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"id":12,"title":"새로운 챗"}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}

func TestSessionIDRejectsNull(t *testing.T) {
	var session Session
	err := json.Unmarshal([]byte(`{"id": null, "title": "x"}`), &session)
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestRoleDecodeRejectsUnknown(t *testing.T) {
	var messages []Message
	err := json.Unmarshal([]byte(`[{"role":"system","content":"x"}]`), &messages)
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := json.Unmarshal([]byte(`[{"role":"Assistant","content":"hi"}]`), &messages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messages[0].Role != RoleAssistant {
		t.Fatalf("expected assistant role, got %q", messages[0].Role)
	}
}

func TestIsValidation(t *testing.T) {
	for _, err := range []error{ErrEmptyMessage, ErrNoSession, ErrBusy, ErrAuthMissing, ErrTranscriptUnavailable} {
		if !IsValidation(err) {
			t.Fatalf("expected %v to be a validation error", err)
		}
	}
	if IsValidation(&TransportError{Op: "send", Status: 500}) {
		t.Fatalf("transport error must not be a validation error")
	}
}

func TestTransportErrorUnauthorized(t *testing.T) {
	err := error(&TransportError{Op: "list sessions", Status: 401, Body: "nope"})
	var te *TransportError
	if !errors.As(err, &te) || !te.Unauthorized() {
		t.Fatalf("expected unauthorized transport error, got %v", err)
	}
	if got := err.Error(); got != "list sessions failed: status=401 body=nope" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestSessionIDKeepsOpaqueBackendIDs(t *testing.T) {
	var sessions []Session
	payload := `[{"id": "chat:1", "title": "a"}, {"id": 2, "title": "b"}, {"id": "노트 3", "title": "c"}]`
	if err := json.Unmarshal([]byte(payload), &sessions); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []SessionID{"chat:1", "2", "노트 3"}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Fatalf("session %d: expected %q, got %q", i, id, sessions[i].ID)
		}
	}
	var empty Session
	if err := json.Unmarshal([]byte(`{"id": "", "title": "x"}`), &empty); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for empty id, got %v", err)
	}
}

func TestSessionIDRoundTripsNonCanonicalNumbers(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{`"007"`, `"007"`},
		{`"+5"`, `"+5"`},
		{`"-0"`, `"-0"`},
		{`"42"`, `42`},
		{`42`, `42`},
		{`-3`, `-3`},
		{`"chat:1"`, `"chat:1"`},
	}
	for _, tc := range cases {
		var id SessionID
		if err := json.Unmarshal([]byte(tc.input), &id); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.input, err)
		}
		data, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal %q: %v", id, err)
		}
		if string(data) != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.input, tc.want, data)
		}
		var back SessionID
		if err := json.Unmarshal(data, &back); err != nil || back != id {
			t.Fatalf("%s: round trip gave %q (%v)", tc.input, back, err)
		}
	}
}
