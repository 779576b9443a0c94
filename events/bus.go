// Copyright (c) 2025 BVK Chaitanya

package events

import (
	"sync"

	"github.com/visvasity/topic"
)

// Bus fans out published events to any number of subscribers and keeps a
// short history of recent events.
type Bus struct {
	tp *topic.Topic[*Event]

	mu       sync.Mutex
	recent   []*Event
	capacity int
}

func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 100
	}
	return &Bus{
		tp:       topic.New[*Event](),
		capacity: capacity,
	}
}

func (b *Bus) Close() {
	b.tp.Close()
}

func (b *Bus) Publish(e *Event) {
	b.mu.Lock()
	b.recent = append(b.recent, e)
	if n := len(b.recent); n > b.capacity {
		b.recent = append([]*Event(nil), b.recent[n-b.capacity:]...)
	}
	b.mu.Unlock()

	b.tp.Send(e)
}

// Recent returns up to capacity most recent events, oldest first.
func (b *Bus) Recent() []*Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Event(nil), b.recent...)
}

// Subscribe returns a receiver for events published after the call. Callers
// must close the receiver.
func (b *Bus) Subscribe() (*topic.Receiver[*Event], error) {
	return topic.Subscribe(b.tp, 0, false)
}

// WithRunID returns a publisher that tags events with the run id before
// forwarding them.
func WithRunID(p Publisher, id string) Publisher {
	return &runPublisher{p: p, id: id}
}

type runPublisher struct {
	p  Publisher
	id string
}

func (r *runPublisher) Publish(e *Event) {
	e.RunID = r.id
	if r.p != nil {
		r.p.Publish(e)
	}
}
