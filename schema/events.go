package schema

// StreamState is the reply assembler state.
type StreamState string

const (
	// StreamIdle means no reply is in flight.
	StreamIdle StreamState = "idle"
	// StreamSending means the placeholder exists and the request is being opened.
	StreamSending StreamState = "sending"
	// StreamStreaming means fragments are arriving.
	StreamStreaming StreamState = "streaming"
)

// EventType identifies a change notification.
type EventType string

const (
	// EventSessions carries a replaced or extended session list.
	EventSessions EventType = "sessions"
	// EventActive carries a change of the active session.
	EventActive EventType = "active"
	// EventTranscript carries a wholesale transcript replacement.
	EventTranscript EventType = "transcript"
	// EventMessage carries a message appended to a transcript.
	EventMessage EventType = "message"
	// EventFragment carries text appended to the last message of a transcript.
	EventFragment EventType = "fragment"
	// EventFailed carries a placeholder rewritten after a stream failure.
	EventFailed EventType = "failed"
	// EventStream carries a reply assembler state change.
	EventStream EventType = "stream"
)

// Event is a change notification emitted by the controller. Only the fields
// relevant to Type are set.
type Event struct {
	Type      EventType
	SessionID SessionID
	Active    SessionID
	Sessions  []Session
	Messages  []Message
	Index     int
	Message   Message
	Fragment  string
	State     StreamState
	Err       error
}
