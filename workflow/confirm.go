// Copyright (c) 2025 BVK Chaitanya

package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ConfirmPolicy decides the result when the page after the final click shows
// neither a success nor a failure indicator.
type ConfirmPolicy string

const (
	// Optimistic treats an indeterminate page as a completed order.
	Optimistic ConfirmPolicy = "optimistic"

	// Strict treats an indeterminate page as a failure.
	Strict ConfirmPolicy = "strict"
)

func ParseConfirmPolicy(s string) (ConfirmPolicy, error) {
	switch p := ConfirmPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", Optimistic:
		return Optimistic, nil
	case Strict:
		return Strict, nil
	default:
		return "", fmt.Errorf("unknown confirm policy %q", s)
	}
}

var (
	successIndicators = []string{
		"order-confirmation",
		"order-success",
		"thank-you",
		"teşekkür",
		"sipariş alındı",
		"order received",
	}

	successURLParts = []string{"success", "confirmation"}

	declineIndicators = []string{
		"payment declined",
		"card declined",
		"transaction failed",
		"ödeme reddedildi",
	}
)

type verdict int

const (
	indeterminate verdict = iota
	succeeded
	declined
)

// inspect classifies the page after the final click. Decline indicators take
// precedence over success indicators.
func inspect(page, url string) (verdict, string) {
	lpage := strings.ToLower(page)
	for _, s := range declineIndicators {
		if strings.Contains(lpage, s) {
			return declined, s
		}
	}
	for _, s := range successIndicators {
		if strings.Contains(lpage, s) {
			return succeeded, s
		}
	}
	lurl := strings.ToLower(url)
	for _, s := range successURLParts {
		if strings.Contains(lurl, s) {
			return succeeded, s
		}
	}
	return indeterminate, ""
}

// Confirmer gates the final order click in debug mode. Confirm blocks until
// the operator decides or the context is canceled.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ChanConfirmer is a Confirmer that waits for a decision delivered through
// Decide, typically from the control API or a chat command.
type ChanConfirmer struct {
	mu      sync.Mutex
	waiting chan bool
}

func NewChanConfirmer() *ChanConfirmer {
	return new(ChanConfirmer)
}

func (c *ChanConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	ch := make(chan bool, 1)

	c.mu.Lock()
	if c.waiting != nil {
		c.mu.Unlock()
		return false, fmt.Errorf("another confirmation is pending")
	}
	c.waiting = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.waiting = nil
		c.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return false, context.Cause(ctx)
	case ok := <-ch:
		return ok, nil
	}
}

// Pending returns true if a Confirm call is waiting for a decision.
func (c *ChanConfirmer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting != nil
}

// Decide delivers the decision to the waiting Confirm call. Returns false if
// no confirmation is pending.
func (c *ChanConfirmer) Decide(ok bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.waiting == nil {
		return false
	}
	select {
	case c.waiting <- ok:
		return true
	default:
		return false
	}
}
