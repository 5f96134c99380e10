package notechat

import (
	"pkt.systems/notechat/core"
	"pkt.systems/notechat/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnEvent(event schema.Event) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnEvent(event)
	}
}
