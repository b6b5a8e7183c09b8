package repository

import "publisher/domain/model"

// IEventSink fans publish progress events out to interested subscribers.
// Emit never blocks the publishing path.
type IEventSink interface {
	Emit(event model.PublishEvent)
}

// SinkGroup broadcasts each event to every member sink.
type SinkGroup []IEventSink

func (g SinkGroup) Emit(event model.PublishEvent) {
	for _, s := range g {
		s.Emit(event)
	}
}
