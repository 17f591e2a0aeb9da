// Package events carries dispatch lifecycle events out of the dispatch core.
package events

import "time"

// Event names emitted by the chat and mini-app dispatchers.
const (
	MessageMatched      = "message_matched"
	MessageSent         = "message_sent"
	HandlerFailed       = "handler_failed"
	EventDispatchStart  = "event_dispatch_start"
	LevelDone           = "level_done"
	TaskFailed          = "task_failed"
	DispatchInterrupted = "dispatch_interrupted"
	EventDispatchDone   = "event_dispatch_done"
)

// Event represents one dispatch lifecycle event.
// Minimal and stable: name + dispatch ID and optional fields via key/values.
type Event struct {
	Name       string         `json:"name"`
	DispatchID string         `json:"dispatch_id"`
	App        string         `json:"app,omitempty"`
	Time       time.Time      `json:"time"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// New stamps an event with the current time.
func New(name, dispatchID, app string, fields map[string]any) Event {
	return Event{Name: name, DispatchID: dispatchID, App: app, Time: time.Now().UTC(), Fields: fields}
}

// Publisher receives dispatch events. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// Noop drops events.
type Noop struct{}

func (Noop) Publish(Event) {}

// OrNoop returns p, or Noop when p is nil.
func OrNoop(p Publisher) Publisher {
	if p == nil {
		return Noop{}
	}
	return p
}

type multi []Publisher

func (m multi) Publish(e Event) {
	for _, p := range m {
		p.Publish(e)
	}
}

// Multi fans events out to every non-nil publisher.
func Multi(ps ...Publisher) Publisher {
	var out multi
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return Noop{}
	case 1:
		return out[0]
	}
	return out
}
