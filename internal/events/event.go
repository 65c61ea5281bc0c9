package events

import (
	"context"
	"sync"
)

const (
	TodoCreated = "Created"
	TodoUpdated = "Updated"
	TodoDeleted = "Deleted"
)

type Event struct {
	Topic string `json:"topic"`
	Name  string `json:"name"`
	Data  any    `json:"data"`
}

// Publisher delivers change events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close()
}

type nopPublisher struct{}

func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, *Event) error { return nil }

func (nopPublisher) Close() {}

// Recorder keeps every published event in memory.
type Recorder struct {
	mux    sync.RWMutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event *Event) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Close() {}
