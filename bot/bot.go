// Copyright (c) 2025 BVK Chaitanya

// Package bot owns the single polling-and-order worker. A run polls the
// inventory until a listing matches, then drives the order workflow for it.
// Runs are journaled in the database under /runs.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/bvk/vinbot/browser"
	"github.com/bvk/vinbot/config"
	"github.com/bvk/vinbot/ctxutil"
	"github.com/bvk/vinbot/events"
	"github.com/bvk/vinbot/gobs"
	"github.com/bvk/vinbot/inventory"
	"github.com/bvk/vinbot/kvutil"
	"github.com/bvk/vinbot/matcher"
	"github.com/bvk/vinbot/scheduler"
	"github.com/bvk/vinbot/workflow"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
)

// RunsDir is the key directory for run journal records.
const RunsDir = "/runs"

var errStopped = errors.New("stopped by user")

type Options struct {
	// Publisher receives all run events. Usually an *events.Bus.
	Publisher events.Publisher

	// NewSource returns the inventory source for a run. Default is an
	// inventory.Client configured from the run config.
	NewSource func(*config.Config) (inventory.Source, error)

	// NewDriver opens an automation session for an order attempt. Default
	// launches a browser configured from the run config.
	NewDriver func(context.Context, *config.Config) (workflow.Driver, error)

	// Clock is used by the polling scheduler.
	Clock scheduler.Clock

	// Sleep is used by the order workflow for its pacing delays.
	Sleep func(context.Context, time.Duration) error
}

func (v *Options) setDefaults() {
	if v.NewSource == nil {
		v.NewSource = func(cfg *config.Config) (inventory.Source, error) {
			return inventory.New(cfg.InventoryOptions())
		}
	}
	if v.NewDriver == nil {
		v.NewDriver = func(ctx context.Context, cfg *config.Config) (workflow.Driver, error) {
			return browser.New(ctx, cfg.BrowserOptions())
		}
	}
}

// Status is a snapshot of the bot state.
type Status struct {
	Running bool

	// AwaitingConfirmation is true when a debug run waits for the operator
	// before placing the order.
	AwaitingConfirmation bool

	// Run is the current run, or the last finished run when not running.
	Run *gobs.RunRecord
}

type Bot struct {
	db kv.Database

	opts Options

	confirmer *workflow.ChanConfirmer

	mu sync.Mutex

	cg   *ctxutil.CloseGroup
	done chan struct{}

	current *gobs.RunRecord
	last    *gobs.RunRecord

	// lastStart keeps run start times strictly increasing so run ids sort
	// in start order.
	lastStart time.Time
}

func New(db kv.Database, opts *Options) (*Bot, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Bot{
		db:        db,
		opts:      *opts,
		confirmer: workflow.NewChanConfirmer(),
	}, nil
}

// Close stops the current run, if any, and waits for it to finish.
func (b *Bot) Close() error {
	if err := b.Stop(context.Background()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// newRunID returns an id that sorts in start time order. The timestamp has
// nanosecond resolution with a fixed width.
func newRunID(now time.Time) string {
	return now.UTC().Format("20060102T150405.000000000") + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func criteriaRecord(c *matcher.Criteria) gobs.CriteriaRecord {
	colors := make([]string, 0, len(c.Colors))
	for _, color := range c.Colors {
		colors = append(colors, string(color))
	}
	return gobs.CriteriaRecord{
		Variant:       c.Variant,
		MaxPrice:      c.MaxPrice,
		Colors:        colors,
		SeatColorRule: c.SeatColorRule,
		DeliveryZip:   c.DeliveryZip,
	}
}

func listingRecord(l *inventory.Listing, c *matcher.Criteria) *gobs.ListingRecord {
	rec := &gobs.ListingRecord{
		VIN:          l.VIN,
		Model:        l.Model,
		Trim:         l.Trim,
		PaintCode:    l.PaintCode,
		InteriorCode: l.InteriorCode,
		Price:        l.Price,
		Year:         l.Year,
		Location:     l.Location,
		Availability: l.Availability.String(),
	}
	if color, ok := l.Color(); ok {
		rec.Color = string(color)
		rec.Interior = string(c.SeatColor(color))
	}
	return rec
}

// Start validates the configuration and starts a new run in the background.
// Returns os.ErrExist if a run is already in progress.
func (b *Bot) Start(ctx context.Context, cfg *config.Config) (string, error) {
	if err := cfg.Check(time.Now()); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cg != nil {
		return "", fmt.Errorf("a run is already in progress: %w", os.ErrExist)
	}

	src, err := b.opts.NewSource(cfg)
	if err != nil {
		return "", fmt.Errorf("could not create inventory source: %w", err)
	}

	now := time.Now()
	if !now.After(b.lastStart) {
		now = b.lastStart.Add(time.Nanosecond)
	}
	b.lastStart = now

	criteria := cfg.Criteria()
	rec := &gobs.RunRecord{
		RunID:     newRunID(now),
		StartedAt: now,
		Criteria:  criteriaRecord(criteria),
	}
	if err := b.save(ctx, rec); err != nil {
		return "", err
	}

	cg, done := new(ctxutil.CloseGroup), make(chan struct{})
	b.cg, b.done, b.current = cg, done, rec.Clone()

	pub := events.WithRunID(b.opts.Publisher, rec.RunID)
	cg.Go(func(ctx context.Context) {
		defer close(done)
		b.run(ctx, rec, cfg, src, pub)
	})

	slog.Info("started a new run", "run-id", rec.RunID, "criteria", criteria.Variant, "max-price", criteria.MaxPrice)
	return rec.RunID, nil
}

// Stop cancels the current run and waits for it to finish. Returns
// os.ErrNotExist if no run is in progress.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	cg, done := b.cg, b.done
	b.mu.Unlock()

	if cg == nil {
		return fmt.Errorf("no run is in progress: %w", os.ErrNotExist)
	}

	stopped := make(chan struct{})
	go func() {
		cg.CloseCause(errStopped)
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-stopped:
		<-done
		return nil
	}
}

// Wait blocks until the current run, if any, finishes.
func (b *Bot) Wait(ctx context.Context) error {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-done:
		return nil
	}
}

// Confirm delivers the operator decision to a run waiting for confirmation.
// Returns os.ErrNotExist if no confirmation is pending.
func (b *Bot) Confirm(ok bool) error {
	if !b.confirmer.Decide(ok) {
		return fmt.Errorf("no order is waiting for confirmation: %w", os.ErrNotExist)
	}
	return nil
}

func (b *Bot) Status() *Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Status{
		Running:              b.cg != nil,
		AwaitingConfirmation: b.confirmer.Pending(),
	}
	if b.current != nil {
		s.Run = b.current.Clone()
	} else if b.last != nil {
		s.Run = b.last.Clone()
	}
	return s
}

// History returns up to limit run records, newest first. Zero limit returns
// all records.
func (b *Bot) History(ctx context.Context, limit int) ([]*gobs.RunRecord, error) {
	var runs []*gobs.RunRecord
	collect := func(_ context.Context, _ kv.Reader, _ string, v *gobs.RunRecord) error {
		runs = append(runs, v)
		if limit > 0 && len(runs) >= limit {
			return kvutil.ErrStop
		}
		return nil
	}
	begin, end := kvutil.PathRange(RunsDir)
	if err := kvutil.DescendDB(ctx, b.db, begin, end, collect); err != nil {
		return nil, fmt.Errorf("could not scan run records: %w", err)
	}
	return runs, nil
}

func (b *Bot) save(ctx context.Context, rec *gobs.RunRecord) error {
	key := path.Join(RunsDir, rec.RunID)
	if err := kvutil.SetDB(context.WithoutCancel(ctx), b.db, key, rec); err != nil {
		return fmt.Errorf("could not save run record %q: %w", rec.RunID, err)
	}
	return nil
}

// update journals the record and publishes it as the current run.
func (b *Bot) update(rec *gobs.RunRecord) {
	if err := b.save(context.Background(), rec); err != nil {
		slog.Error("could not update run journal (ignored)", "run-id", rec.RunID, "err", err)
	}
	b.mu.Lock()
	b.current = rec.Clone()
	b.mu.Unlock()
}

func (b *Bot) finish(rec *gobs.RunRecord) {
	rec.FinishedAt = time.Now()
	if err := b.save(context.Background(), rec); err != nil {
		slog.Error("could not save finished run (ignored)", "run-id", rec.RunID, "err", err)
	}

	b.mu.Lock()
	b.cg, b.done, b.current = nil, nil, nil
	b.last = rec.Clone()
	b.mu.Unlock()
}

func (b *Bot) run(ctx context.Context, rec *gobs.RunRecord, cfg *config.Config, src inventory.Source, pub events.Publisher) {
	defer b.finish(rec)

	sched := scheduler.New(&scheduler.Options{
		Clock:     b.opts.Clock,
		Publisher: pub,
		NewQuery: func(*matcher.Criteria) *inventory.Query {
			return cfg.Query()
		},
	})

	criteria := cfg.Criteria()
	out, err := sched.Run(ctx, criteria, cfg.Settings(), src)
	if err != nil {
		rec.Outcome, rec.Error = "Failed", err.Error()
		events.Emit(pub, events.Error, events.RunFailed, "run could not start polling", "err", err)
		return
	}
	rec.Outcome = out.Kind.String()
	rec.Attempts = out.Attempts
	rec.FailedAttempts = out.FailedAttempts
	rec.GatedAttempts = out.GatedAttempts
	defer func() {
		events.Emit(pub, events.Info, events.RunFinished, "run finished", "outcome", rec.Outcome, "attempts", rec.Attempts)
	}()

	if out.Kind != scheduler.MatchFound {
		return
	}
	rec.Listing = listingRecord(out.Listing, criteria)
	b.update(rec)

	order := &gobs.OrderRecord{StartedAt: time.Now()}
	rec.Order = order
	result := b.order(ctx, cfg, out.Listing, pub)
	order.FinishedAt = time.Now()
	order.Result = result.Kind.String()
	order.Step = string(result.Step)
	order.Field = result.Field
	order.Reason = result.Reason
	order.Confirmed = result.Confirmed
}

func (b *Bot) order(ctx context.Context, cfg *config.Config, l *inventory.Listing, pub events.Publisher) *workflow.Result {
	settings := cfg.Settings()
	wf, err := workflow.New(&workflow.Options{
		Evasion:   settings.Evasion,
		Debug:     settings.Debug,
		KeepOpen:  cfg.Bot.KeepOpen,
		Policy:    cfg.ConfirmPolicy(),
		Confirmer: b.confirmer,
		Publisher: pub,
		DesignURL: cfg.DesignURL(),
		Sleep:     b.opts.Sleep,
	})
	if err != nil {
		events.Emit(pub, events.Error, events.OrderFailed, "could not create order workflow", "err", err)
		return &workflow.Result{Kind: workflow.FailedAtStep, Step: workflow.Idle, Reason: err.Error(), Err: err}
	}

	driver, err := b.opts.NewDriver(ctx, cfg)
	if err != nil {
		events.Emit(pub, events.Error, events.OrderFailed, "could not open automation session", "vin", l.VIN, "err", err)
		return &workflow.Result{Kind: workflow.FailedAtStep, Step: workflow.Idle, Reason: err.Error(), Err: err}
	}
	return wf.Execute(ctx, l, cfg.OrderContext(), driver)
}
