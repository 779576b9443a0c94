// Copyright (c) 2025 BVK Chaitanya

package workflow

import (
	"context"
	"fmt"
)

// Element is an opaque handle to a page element. Only the driver that
// returned an element can interpret it.
type Element any

type LocatorKind string

const (
	ByName        LocatorKind = "name"
	ByID          LocatorKind = "id"
	ByCSS         LocatorKind = "css"
	ByXPath       LocatorKind = "xpath"
	ByText        LocatorKind = "text"
	ByPlaceholder LocatorKind = "placeholder"
)

// Locator is one strategy for finding an element. ByText matches buttons
// whose visible text contains the value; ByPlaceholder matches inputs with
// the exact placeholder text.
type Locator struct {
	Kind  LocatorKind
	Value string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%q", l.Kind, l.Value)
}

type FillMode int

const (
	// Replace clears the element before typing the text.
	Replace FillMode = iota

	// Append types the text after the current element value.
	Append
)

type ClickStyle int

const (
	// NativeClick clicks the element center through the input pipeline.
	NativeClick ClickStyle = iota

	// OffsetClick moves the pointer to a small random offset from the
	// element center before clicking.
	OffsetClick

	// ScriptClick invokes the element's click handler through script.
	ScriptClick
)

// Driver is the browser automation capability used by the workflow. The
// workflow is the only component that mutates driver state.
type Driver interface {
	Navigate(ctx context.Context, url string) error

	// Locate returns a present and interactable element for the locator. It
	// returns a nil element and nil error if no such element exists before
	// the context deadline.
	Locate(ctx context.Context, loc Locator) (Element, error)

	ScrollIntoView(ctx context.Context, el Element) error

	Fill(ctx context.Context, el Element, text string, mode FillMode) error

	// Select picks the option with the given value in a select element.
	Select(ctx context.Context, el Element, value string) error

	Click(ctx context.Context, el Element, style ClickStyle) error

	// ReadPage returns the current page content.
	ReadPage(ctx context.Context) (string, error)

	CurrentURL(ctx context.Context) (string, error)

	Close() error
}
