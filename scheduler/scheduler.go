// Copyright (c) 2025 BVK Chaitanya

// Package scheduler implements the inventory polling loop. A run repeatedly
// queries an inventory source, selects the best listing for the buyer and
// stops on the first match, on cancellation or when the attempt budget is
// exhausted.
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/bvk/vinbot/ctxutil"
	"github.com/bvk/vinbot/events"
	"github.com/bvk/vinbot/inventory"
	"github.com/bvk/vinbot/matcher"
)

type OutcomeKind int

const (
	NoMatchFound OutcomeKind = iota
	MatchFound
	Cancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case MatchFound:
		return "MatchFound"
	case Cancelled:
		return "Cancelled"
	default:
		return "NoMatchFound"
	}
}

// Outcome is the single result of a polling run.
type Outcome struct {
	Kind OutcomeKind

	// Listing is non-nil only for MatchFound outcomes.
	Listing *inventory.Listing

	// Attempts is the number of attempts consumed from the budget, including
	// failed and gated attempts.
	Attempts int

	FailedAttempts int
	GatedAttempts  int
}

// Clock abstracts the wall clock and the inter-cycle wait.
type Clock interface {
	Now() time.Time

	// Sleep waits for the duration or until the context is canceled, in
	// which case it returns a non-nil error.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	return ctxutil.Sleep(ctx, d)
}

type Options struct {
	Clock Clock

	// Rand is the jitter source.
	Rand *rand.Rand

	Publisher events.Publisher

	// NewQuery builds the inventory query for the criteria. Default query is
	// inventory.DefaultQuery with the criteria's delivery zip.
	NewQuery func(*matcher.Criteria) *inventory.Query
}

func (v *Options) setDefaults() {
	if v.Clock == nil {
		v.Clock = systemClock{}
	}
	if v.Rand == nil {
		v.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if v.NewQuery == nil {
		v.NewQuery = func(c *matcher.Criteria) *inventory.Query {
			return inventory.DefaultQuery(c.DeliveryZip)
		}
	}
}

type Scheduler struct {
	opts Options

	randMu sync.Mutex
}

func New(opts *Options) *Scheduler {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Scheduler{opts: *opts}
}

func (s *Scheduler) emit(level events.Level, kind events.Kind, msg string, args ...any) {
	events.Emit(s.opts.Publisher, level, kind, msg, args...)
}

// Run polls the source until a listing matches the criteria, the context is
// canceled or the attempt budget is exhausted. Cancellation is checked at the
// start of every cycle, before the wait and right after the wait. An
// in-flight query is never interrupted by cancellation; it is bounded only by
// the request timeout. Query failures are counted and absorbed.
//
// Run returns a non-nil error only for invalid criteria or settings.
func (s *Scheduler) Run(ctx context.Context, c *matcher.Criteria, settings *Settings, src inventory.Source) (*Outcome, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	ss := *settings
	ss.setDefaults()
	if err := ss.Check(); err != nil {
		return nil, err
	}

	query := s.opts.NewQuery(c)
	out := new(Outcome)

	for attempt := 1; ; attempt++ {
		if context.Cause(ctx) != nil {
			return s.cancelled(ctx, out), nil
		}
		if attempt > ss.MaxAttempts {
			break
		}
		out.Attempts = attempt

		if start := ss.SaleStart; start != nil && start.Pending(s.opts.Clock.Now()) {
			out.GatedAttempts++
			s.emit(events.Info, events.Status, "waiting for the sale start time", "attempt", attempt, "sale-start", start.String())
		} else if listing, ok := s.poll(ctx, &ss, c, src, query, attempt); !ok {
			out.FailedAttempts++
		} else if listing != nil {
			out.Kind, out.Listing = MatchFound, listing
			s.emit(events.Success, events.MatchFound, "found a matching vehicle", "attempt", attempt, "vin", listing.VIN, "price", listing.Price.StringFixed(0), "paint", listing.PaintCode)
			return out, nil
		}

		if context.Cause(ctx) != nil {
			return s.cancelled(ctx, out), nil
		}
		if attempt == ss.MaxAttempts {
			break
		}
		if err := s.opts.Clock.Sleep(ctx, s.waitDuration(&ss)); err != nil {
			return s.cancelled(ctx, out), nil
		}
	}

	out.Kind = NoMatchFound
	s.emit(events.Warning, events.NoMatch, "no matching vehicle found within the attempt budget", "attempts", out.Attempts, "failed", out.FailedAttempts, "gated", out.GatedAttempts)
	return out, nil
}

// poll runs one inventory query and the matcher. Returns false if the query
// failed.
func (s *Scheduler) poll(ctx context.Context, settings *Settings, c *matcher.Criteria, src inventory.Source, q *inventory.Query, attempt int) (*inventory.Listing, bool) {
	qctx, qcancel := context.WithTimeout(context.WithoutCancel(ctx), settings.RequestTimeout)
	defer qcancel()

	start := s.opts.Clock.Now()
	listings, err := src.Query(qctx, q)
	if err != nil {
		s.emit(events.Warning, events.Status, "inventory query failed", "attempt", attempt, "err", err)
		return nil, false
	}
	listing := matcher.Select(listings, c)
	if listing == nil {
		s.emit(events.Info, events.Status, "no matching vehicle in inventory", "attempt", attempt, "listings", len(listings), "latency", s.opts.Clock.Now().Sub(start))
	}
	return listing, true
}

func (s *Scheduler) cancelled(ctx context.Context, out *Outcome) *Outcome {
	out.Kind, out.Listing = Cancelled, nil
	s.emit(events.Warning, events.Cancelled, "polling is cancelled", "attempts", out.Attempts, "cause", context.Cause(ctx))
	return out
}

// waitDuration returns the poll interval, perturbed by a uniform random
// jitter in [-bound, +bound] when evasion is enabled. Jittered waits are never
// shorter than MinWait.
func (s *Scheduler) waitDuration(settings *Settings) time.Duration {
	d := settings.PollInterval
	if !settings.Evasion || settings.JitterBound == 0 {
		return d
	}
	s.randMu.Lock()
	f := s.opts.Rand.Float64()
	s.randMu.Unlock()

	d += time.Duration((2*f - 1) * float64(settings.JitterBound))
	return max(d, MinWait)
}
