// Copyright (c) 2025 BVK Chaitanya

package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	Info    Level = "INFO"
	Success Level = "SUCCESS"
	Warning Level = "WARNING"
	Error   Level = "ERROR"
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case Warning:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Kind identifies what an event reports. Every terminal outcome of a run has
// a distinct kind.
type Kind string

const (
	Status Kind = "status"

	MatchFound  Kind = "match-found"
	NoMatch     Kind = "no-match"
	Cancelled   Kind = "cancelled"
	RunFailed   Kind = "run-failed"
	RunFinished Kind = "run-finished"

	OrderCompleted Kind = "order-completed"
	OrderFailed    Kind = "order-failed"
	OrderAborted   Kind = "order-aborted"

	ConfirmationNeeded Kind = "confirmation-needed"
)

// Terminal returns true for kinds that end a run or an order attempt.
func (k Kind) Terminal() bool {
	switch k {
	case MatchFound, NoMatch, Cancelled, RunFailed, OrderCompleted, OrderFailed, OrderAborted:
		return true
	}
	return false
}

// Event is a timestamped, leveled status message.
type Event struct {
	Time    time.Time         `json:"time"`
	Level   Level             `json:"level"`
	Kind    Kind              `json:"kind"`
	RunID   string            `json:"run_id,omitempty"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

func (e *Event) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] %s", e.Time.Format("15:04:05"), e.Level, e.Message)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%s", k, e.Attrs[k])
	}
	return sb.String()
}

// Publisher receives events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(e *Event)
}

// Emit logs an event through slog and hands it to the publisher, which may be
// nil. Args are slog style key-value pairs.
func Emit(p Publisher, level Level, kind Kind, msg string, args ...any) *Event {
	e := &Event{
		Time:    time.Now(),
		Level:   level,
		Kind:    kind,
		Message: msg,
	}
	if len(args) > 0 {
		e.Attrs = make(map[string]string)
		r := slog.NewRecord(e.Time, slog.LevelInfo, msg, 0)
		r.Add(args...)
		r.Attrs(func(a slog.Attr) bool {
			e.Attrs[a.Key] = a.Value.Resolve().String()
			return true
		})
	}
	slog.Log(context.Background(), level.slogLevel(), msg, append(args, "event", kind)...)
	if p != nil {
		p.Publish(e)
	}
	return e
}

// Recorder is a Publisher that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []*Event
}

func (r *Recorder) Publish(e *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Event(nil), r.events...)
}

// Kinds returns the kinds of all recorded events in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
