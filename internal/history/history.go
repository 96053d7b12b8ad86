package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart    EventType = "start"
	EventReady    EventType = "ready"
	EventStop     EventType = "stop"
	EventDownload EventType = "download"
)

// Event is one lifecycle audit record.
type Event struct {
	Type       EventType `json:"type"`
	Service    string    `json:"service"`
	PID        int       `json:"pid,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for lifecycle events. Sends are best-effort:
// callers log sink failures but never fail the lifecycle operation.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// NopSink discards events; used when history is disabled.
type NopSink struct{}

func (NopSink) Send(context.Context, Event) error { return nil }
func (NopSink) Close() error                      { return nil }
