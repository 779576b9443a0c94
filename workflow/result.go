// Copyright (c) 2025 BVK Chaitanya

package workflow

import "fmt"

type State string

const (
	Idle                State = "Idle"
	NavigatingToVehicle State = "NavigatingToVehicle"
	FillingDeliveryForm State = "FillingDeliveryForm"
	FillingPaymentForm  State = "FillingPaymentForm"
	ConfirmingOrder     State = "ConfirmingOrder"
	Completed           State = "Completed"
	Failed              State = "Failed"
)

type ResultKind int

const (
	OrderCompleted ResultKind = iota
	FailedAtStep
	Aborted
)

func (k ResultKind) String() string {
	switch k {
	case OrderCompleted:
		return "Completed"
	case FailedAtStep:
		return "FailedAtStep"
	default:
		return "Aborted"
	}
}

// Result is the terminal result of one order attempt.
type Result struct {
	Kind ResultKind

	// Step is the state in which the attempt failed or was aborted.
	Step State

	// Field names the element that could not be located, if any.
	Field string

	Reason string

	// Confirmed is true when a success indicator was observed; false for an
	// optimistic completion.
	Confirmed bool

	Err error
}

func (r *Result) String() string {
	switch r.Kind {
	case OrderCompleted:
		if r.Confirmed {
			return "order completed (confirmed)"
		}
		return "order completed (no confirmation indicator)"
	case FailedAtStep:
		if len(r.Field) != 0 {
			return fmt.Sprintf("order failed at %s on %s: %s", r.Step, r.Field, r.Reason)
		}
		return fmt.Sprintf("order failed at %s: %s", r.Step, r.Reason)
	default:
		return fmt.Sprintf("order aborted at %s: %s", r.Step, r.Reason)
	}
}

// ElementNotFoundError reports that every locator strategy for a field was
// exhausted.
type ElementNotFoundError struct {
	Step  State
	Field string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %q not found in step %s", e.Field, e.Step)
}
