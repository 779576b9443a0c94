// Copyright (c) 2025 BVK Chaitanya

package events

import (
	"strings"
	"testing"
	"time"
)

func TestEmit(t *testing.T) {
	var r Recorder
	p := WithRunID(&r, "run-1")
	e := Emit(p, Warning, Status, "inventory query failed", "attempt", 3, "err", "timeout")

	if e.RunID != "run-1" {
		t.Fatalf("want run id to be tagged, got %q", e.RunID)
	}
	if v := e.Attrs["attempt"]; v != "3" {
		t.Fatalf("want attempt attr 3, got %q", v)
	}
	s := e.String()
	if !strings.Contains(s, "[WARNING] inventory query failed") || !strings.HasSuffix(s, "attempt=3 err=timeout") {
		t.Fatalf("unexpected event text %q", s)
	}
	if kinds := r.Kinds(); len(kinds) != 1 || kinds[0] != Status {
		t.Fatalf("want one status event, got %v", kinds)
	}
}

func TestBus(t *testing.T) {
	b := NewBus(2)
	defer b.Close()

	receiver, err := b.Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	defer receiver.Close()

	Emit(b, Info, Status, "one")
	Emit(b, Info, Status, "two")
	Emit(b, Success, MatchFound, "three")

	recent := b.Recent()
	if len(recent) != 2 || recent[0].Message != "two" || recent[1].Message != "three" {
		t.Fatalf("want last two events in history, got %v", recent)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, want := range []string{"one", "two", "three"} {
			e, err := receiver.Receive()
			if err != nil {
				t.Errorf("could not receive: %v", err)
				return
			}
			if e.Message != want {
				t.Errorf("want %q, got %q", want, e.Message)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for events")
	}
}

func TestTerminalKinds(t *testing.T) {
	for _, k := range []Kind{MatchFound, NoMatch, Cancelled, OrderCompleted, OrderFailed, OrderAborted} {
		if !k.Terminal() {
			t.Fatalf("want %s to be terminal", k)
		}
	}
	if Status.Terminal() || ConfirmationNeeded.Terminal() {
		t.Fatalf("want status kinds to be non-terminal")
	}
}
