// Copyright (c) 2025 BVK Chaitanya

// Package workflow drives the multi-step checkout for a matched vehicle
// through an automation Driver. Steps are declared as data with ordered
// fallback locators; a forward-only state machine sequences them.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/bvk/vinbot/ctxutil"
	"github.com/bvk/vinbot/events"
	"github.com/bvk/vinbot/inventory"
)

const DefaultDesignURL = "https://www.tesla.com/tr_TR/modely/design#overview"

var (
	settleDelay = Delay{Min: 300 * time.Millisecond, Max: 800 * time.Millisecond}
	typingDelay = Delay{Min: 50 * time.Millisecond, Max: 150 * time.Millisecond}
	clickPause  = Delay{Min: time.Second, Max: 2 * time.Second}
	resultPause = Delay{Min: 3 * time.Second, Max: 5 * time.Second}
)

type Options struct {
	// Evasion enables human-like pacing: keystroke typing, randomized
	// settle delays and offset mouse clicks.
	Evasion bool

	// Debug gates the final order click on the Confirmer.
	Debug bool

	// KeepOpen leaves the driver session open after a debug run.
	KeepOpen bool

	Policy ConfirmPolicy

	Confirmer Confirmer

	Publisher events.Publisher

	DesignURL string

	// LocateTimeout bounds the wait for each individual locator.
	LocateTimeout time.Duration

	// FixedDelay replaces every randomized delay when Evasion is off.
	FixedDelay time.Duration

	Sleep func(context.Context, time.Duration) error

	Rand *rand.Rand

	// Steps are the form-filling steps run after navigation. Default is
	// DefaultSteps().
	Steps []*Step

	// OrderButton starts checkout on the vehicle page. Default is
	// DefaultOrderButton().
	OrderButton *Field

	// PlaceOrder locates the final order button. Default is
	// DefaultPlaceOrderLocators().
	PlaceOrder []Locator
}

func (v *Options) setDefaults() {
	if v.Policy == "" {
		v.Policy = Optimistic
	}
	if v.DesignURL == "" {
		v.DesignURL = DefaultDesignURL
	}
	if v.LocateTimeout == 0 {
		v.LocateTimeout = 5 * time.Second
	}
	if v.FixedDelay == 0 {
		v.FixedDelay = 500 * time.Millisecond
	}
	if v.Sleep == nil {
		v.Sleep = ctxutil.Sleep
	}
	if v.Rand == nil {
		v.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if v.Steps == nil {
		v.Steps = DefaultSteps()
	}
	if v.OrderButton == nil {
		v.OrderButton = DefaultOrderButton()
	}
	if v.PlaceOrder == nil {
		v.PlaceOrder = DefaultPlaceOrderLocators()
	}
}

func (v *Options) Check() error {
	if v.Policy != Optimistic && v.Policy != Strict {
		return fmt.Errorf("invalid confirm policy %q: %w", v.Policy, os.ErrInvalid)
	}
	if v.Debug && v.Confirmer == nil {
		return fmt.Errorf("debug mode needs a confirmer: %w", os.ErrInvalid)
	}
	if v.LocateTimeout < 0 || v.FixedDelay < 0 {
		return fmt.Errorf("timeouts and delays cannot be negative: %w", os.ErrInvalid)
	}
	if _, err := url.Parse(v.DesignURL); err != nil {
		return fmt.Errorf("invalid design url %q: %w", v.DesignURL, err)
	}
	return nil
}

type Workflow struct {
	opts Options

	randMu sync.Mutex
}

func New(opts *Options) (*Workflow, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return &Workflow{opts: *opts}, nil
}

// VehicleURL returns the order page address for the vehicle.
func VehicleURL(designURL, vin string) (string, error) {
	u, err := url.Parse(designURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("vin", vin)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Resolve tries the locators in order and returns the first element that
// find reports as present. Each attempt is bounded by the timeout. Errors
// from find are treated as a miss for that locator.
func Resolve[T any](ctx context.Context, locs []Locator, timeout time.Duration, find func(context.Context, Locator) (T, bool, error)) (T, Locator, bool) {
	var zero T
	for _, loc := range locs {
		lctx, cancel := context.WithTimeout(ctx, timeout)
		v, ok, err := find(lctx, loc)
		cancel()
		if err != nil {
			slog.Debug("locator failed", "locator", loc, "err", err)
			continue
		}
		if ok {
			return v, loc, true
		}
	}
	return zero, Locator{}, false
}

func (w *Workflow) uniform(d Delay) time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	w.randMu.Lock()
	defer w.randMu.Unlock()
	return d.Min + time.Duration(w.opts.Rand.Int63n(int64(d.Max-d.Min)+1))
}

// Execute runs the order workflow for the listing. It always returns a
// terminal result. The driver is closed exactly once before returning unless
// the workflow is in debug mode with KeepOpen set.
//
// Cancellation of ctx is observed between steps and while waiting for debug
// confirmation; it yields an Aborted result. Individual steps run to
// completion.
func (w *Workflow) Execute(ctx context.Context, l *inventory.Listing, oc *OrderContext, d Driver) *Result {
	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := d.Close(); err != nil {
				slog.Warn("could not close automation driver", "err", err)
			}
		})
	}
	if !(w.opts.Debug && w.opts.KeepOpen) {
		defer release()
	}

	r := &orderRun{
		w:    w,
		d:    d,
		oc:   oc,
		ctx:  ctx,
		sctx: context.WithoutCancel(ctx),
	}
	r.m = newMachine(func(from, to State) {
		if to != Completed && to != Failed {
			events.Emit(w.opts.Publisher, events.Info, events.Status, "order workflow step", "from", from, "to", to)
		}
	})

	var result *Result
	if l == nil || oc == nil {
		result = r.fail(Idle, "", fmt.Errorf("listing and order context are required: %w", os.ErrInvalid))
	} else {
		r.vin = l.VIN
		result = r.execute()
	}
	w.report(r.vin, result)
	return result
}

func (w *Workflow) report(vin string, r *Result) {
	p := w.opts.Publisher
	switch r.Kind {
	case OrderCompleted:
		events.Emit(p, events.Success, events.OrderCompleted, r.String(), "vin", vin, "confirmed", r.Confirmed)
	case FailedAtStep:
		events.Emit(p, events.Error, events.OrderFailed, r.String(), "vin", vin, "step", r.Step, "field", r.Field)
	default:
		events.Emit(p, events.Warning, events.OrderAborted, r.String(), "vin", vin, "step", r.Step)
	}
}

type orderRun struct {
	w  *Workflow
	d  Driver
	m  *machine
	oc *OrderContext

	vin string

	// ctx is the caller's context; sctx is its non-cancelable copy used for
	// driver operations and delays.
	ctx  context.Context
	sctx context.Context
}

func (r *orderRun) execute() *Result {
	if res := r.enter(eventNavigate); res != nil {
		return res
	}
	addr, err := VehicleURL(r.w.opts.DesignURL, r.vin)
	if err != nil {
		return r.fail(NavigatingToVehicle, "", err)
	}
	if err := r.d.Navigate(r.sctx, addr); err != nil {
		return r.fail(NavigatingToVehicle, "", fmt.Errorf("could not navigate to vehicle page: %w", err))
	}
	r.pause(loadPause)
	if err := r.interact(r.w.opts.OrderButton); err != nil {
		return r.fail(NavigatingToVehicle, r.w.opts.OrderButton.Name, err)
	}

	for _, step := range r.w.opts.Steps {
		if res := r.enter(step.Event); res != nil {
			return res
		}
		r.pause(step.Before)
		for i := range step.Fields {
			f := &step.Fields[i]
			if err := r.interact(f); err != nil {
				return r.fail(step.State, f.Name, err)
			}
		}
	}

	return r.confirm()
}

// enter moves the machine forward unless the caller has canceled the run.
func (r *orderRun) enter(event string) *Result {
	if cause := context.Cause(r.ctx); cause != nil {
		return r.abort(r.m.state(), fmt.Sprintf("canceled: %v", cause))
	}
	if err := r.m.advance(r.sctx, event); err != nil {
		return r.fail(r.m.state(), "", fmt.Errorf("could not advance order workflow with %q: %w", event, err))
	}
	return nil
}

func (r *orderRun) fail(step State, field string, err error) *Result {
	if r.m != nil {
		if merr := r.m.advance(r.sctx, eventFail); merr != nil {
			slog.Debug("order workflow already terminal", "err", merr)
		}
	}
	return &Result{
		Kind:   FailedAtStep,
		Step:   step,
		Field:  field,
		Reason: err.Error(),
		Err:    err,
	}
}

func (r *orderRun) abort(step State, reason string) *Result {
	if err := r.m.advance(r.sctx, eventFail); err != nil {
		slog.Debug("order workflow already terminal", "err", err)
	}
	return &Result{
		Kind:   Aborted,
		Step:   step,
		Reason: reason,
	}
}

func (r *orderRun) pause(d Delay) {
	if d.Max == 0 && d.Min == 0 {
		return
	}
	v := r.w.opts.FixedDelay
	if r.w.opts.Evasion {
		v = r.w.uniform(d)
	}
	_ = r.w.opts.Sleep(r.sctx, v)
}

func (r *orderRun) locate(locs []Locator) (Element, Locator, bool) {
	find := func(ctx context.Context, loc Locator) (Element, bool, error) {
		el, err := r.d.Locate(ctx, loc)
		return el, el != nil, err
	}
	return Resolve(r.sctx, locs, r.w.opts.LocateTimeout, find)
}

// prepare scrolls the element into view and lets the page settle.
func (r *orderRun) prepare(el Element) error {
	if err := r.d.ScrollIntoView(r.sctx, el); err != nil {
		return fmt.Errorf("could not scroll element into view: %w", err)
	}
	if r.w.opts.Evasion {
		r.pause(settleDelay)
	}
	return nil
}

func (r *orderRun) interact(f *Field) error {
	el, loc, ok := r.locate(f.Locators)
	if !ok {
		if f.Optional {
			events.Emit(r.w.opts.Publisher, events.Warning, events.Status, "optional field not found; skipped", "field", f.Name, "step", r.m.state())
			return nil
		}
		return &ElementNotFoundError{Step: r.m.state(), Field: f.Name}
	}
	slog.Debug("located element", "field", f.Name, "locator", loc)

	if err := r.prepare(el); err != nil {
		return err
	}

	switch f.Action {
	case Click:
		style := NativeClick
		if r.w.opts.Evasion {
			style = OffsetClick
		}
		if err := r.d.Click(r.sctx, el, style); err != nil {
			return fmt.Errorf("could not click: %w", err)
		}
	case Fill:
		if err := r.fill(el, f.Value(r.oc)); err != nil {
			return fmt.Errorf("could not fill: %w", err)
		}
	case Choose:
		if err := r.d.Select(r.sctx, el, f.Value(r.oc)); err != nil {
			return fmt.Errorf("could not select option: %w", err)
		}
	default:
		return fmt.Errorf("unknown action %d: %w", f.Action, os.ErrInvalid)
	}

	r.pause(f.Pause)
	return nil
}

// fill types text into the element. With evasion the text is typed one
// character at a time; the first keystroke replaces the current value.
func (r *orderRun) fill(el Element, text string) error {
	if !r.w.opts.Evasion || len(text) == 0 {
		return r.d.Fill(r.sctx, el, text, Replace)
	}
	mode := Replace
	for _, ch := range text {
		if err := r.d.Fill(r.sctx, el, string(ch), mode); err != nil {
			return err
		}
		mode = Append
		r.pause(typingDelay)
	}
	return nil
}

func (r *orderRun) confirm() *Result {
	if res := r.enter(eventConfirm); res != nil {
		return res
	}
	r.pause(pagePause)

	el, _, ok := r.locate(r.w.opts.PlaceOrder)
	if !ok {
		return r.fail(ConfirmingOrder, "placeOrderButton", &ElementNotFoundError{Step: ConfirmingOrder, Field: "placeOrderButton"})
	}
	if err := r.prepare(el); err != nil {
		return r.fail(ConfirmingOrder, "placeOrderButton", err)
	}

	if r.w.opts.Debug {
		events.Emit(r.w.opts.Publisher, events.Warning, events.ConfirmationNeeded, "order form is ready; waiting for confirmation to place the order", "vin", r.vin)
		ok, err := r.w.opts.Confirmer.Confirm(r.ctx, fmt.Sprintf("Place order for %s?", r.vin))
		if err != nil {
			return r.abort(ConfirmingOrder, fmt.Sprintf("confirmation canceled: %v", err))
		}
		if !ok {
			return r.abort(ConfirmingOrder, "order declined by operator")
		}
	}
	if cause := context.Cause(r.ctx); cause != nil {
		return r.abort(ConfirmingOrder, fmt.Sprintf("canceled: %v", cause))
	}

	r.pause(clickPause)
	style := NativeClick
	if r.w.opts.Evasion {
		style = ScriptClick
	}
	if err := r.d.Click(r.sctx, el, style); err != nil {
		return r.fail(ConfirmingOrder, "placeOrderButton", fmt.Errorf("could not click: %w", err))
	}
	r.pause(resultPause)

	page, err := r.d.ReadPage(r.sctx)
	if err != nil {
		return r.fail(ConfirmingOrder, "", fmt.Errorf("could not read page after placing the order: %w", err))
	}
	addr, err := r.d.CurrentURL(r.sctx)
	if err != nil {
		return r.fail(ConfirmingOrder, "", fmt.Errorf("could not read page address after placing the order: %w", err))
	}

	switch v, indicator := inspect(page, addr); v {
	case succeeded:
		if err := r.m.advance(r.sctx, eventComplete); err != nil {
			return r.fail(ConfirmingOrder, "", err)
		}
		return &Result{Kind: OrderCompleted, Step: Completed, Confirmed: true, Reason: fmt.Sprintf("found %q", indicator)}
	case declined:
		err := fmt.Errorf("payment was declined (%q)", indicator)
		return r.fail(ConfirmingOrder, "", err)
	}

	if r.w.opts.Policy == Strict {
		return r.fail(ConfirmingOrder, "", errors.New("no confirmation indicator after placing the order"))
	}
	events.Emit(r.w.opts.Publisher, events.Warning, events.Status, "no confirmation indicator after placing the order; assuming success", "vin", r.vin)
	if err := r.m.advance(r.sctx, eventComplete); err != nil {
		return r.fail(ConfirmingOrder, "", err)
	}
	return &Result{Kind: OrderCompleted, Step: Completed, Reason: "no confirmation indicator"}
}
