package core

import "pkt.systems/notechat/schema"

// EventSink receives change notifications from the core service. Calls
// happen on the goroutine that made the change and must not block.
type EventSink interface {
	OnEvent(event schema.Event)
}
