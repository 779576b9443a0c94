// Copyright (c) 2025 BVK Chaitanya

package workflow

import (
	"context"
	"log/slog"

	"github.com/looplab/fsm"
)

const (
	eventNavigate     = "navigate"
	eventFillDelivery = "fill_delivery"
	eventFillPayment  = "fill_payment"
	eventConfirm      = "confirm"
	eventComplete     = "complete"
	eventFail         = "fail"
)

// machine enforces the forward-only order workflow transitions. Every
// non-terminal state can move to Failed; no event leads back to an earlier
// state.
type machine struct {
	*fsm.FSM
}

func newMachine(onEnter func(from, to State)) *machine {
	active := []string{
		string(NavigatingToVehicle),
		string(FillingDeliveryForm),
		string(FillingPaymentForm),
		string(ConfirmingOrder),
	}
	events := fsm.Events{
		{Name: eventNavigate, Src: []string{string(Idle)}, Dst: string(NavigatingToVehicle)},
		{Name: eventFillDelivery, Src: []string{string(NavigatingToVehicle)}, Dst: string(FillingDeliveryForm)},
		{Name: eventFillPayment, Src: []string{string(FillingDeliveryForm)}, Dst: string(FillingPaymentForm)},
		{Name: eventConfirm, Src: []string{string(FillingPaymentForm)}, Dst: string(ConfirmingOrder)},
		{Name: eventComplete, Src: []string{string(ConfirmingOrder)}, Dst: string(Completed)},
		{Name: eventFail, Src: append([]string{string(Idle)}, active...), Dst: string(Failed)},
	}
	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			slog.Debug("order workflow transition", "event", e.Event, "from", e.Src, "to", e.Dst)
			if onEnter != nil {
				onEnter(State(e.Src), State(e.Dst))
			}
		},
	}
	return &machine{FSM: fsm.NewFSM(string(Idle), events, callbacks)}
}

func (m *machine) state() State {
	return State(m.Current())
}

// advance fires the event. Transition errors indicate a bug in the step
// sequencing and are returned as is.
func (m *machine) advance(ctx context.Context, event string) error {
	return m.Event(ctx, event)
}
