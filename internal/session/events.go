package session

import "github.com/aurelio-labs/aiversity/internal/domain"

type event interface{ isEvent() }

type baseEvent struct{}

func (baseEvent) isEvent() {}

type startEvt struct{ baseEvent }

type closeEvt struct{ baseEvent }

type sendEvt struct {
	baseEvent
	text string
}

type submitDoneEvt struct {
	baseEvent
	resp domain.ChatResponse
	err  error
}

type dialDoneEvt struct {
	baseEvent
	gen  uint64
	conn domain.SubscriberConn
	err  error
}

type frameEvt struct {
	baseEvent
	gen  uint64
	data []byte
}

type connClosedEvt struct {
	baseEvent
	gen uint64
	err error
}

type reconnectEvt struct {
	baseEvent
	gen uint64
}

type idleEvt struct {
	baseEvent
	gen uint64
}

type noteEvt struct {
	baseEvent
	text string
}

type clearEvt struct{ baseEvent }

type snapshotEvt struct {
	baseEvent
	reply chan<- Snapshot
}
