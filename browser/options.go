// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"fmt"
	"os"
	"time"

	"github.com/bvk/vinbot/inventory"
)

type Options struct {
	Headless bool

	// UserAgent overrides the browser user agent. When empty and Evasion is
	// set, a random desktop user agent is used.
	UserAgent string

	// Evasion hides common automation markers from the page.
	Evasion bool

	WindowWidth  int
	WindowHeight int

	// Lang is the browser locale.
	Lang string

	// ExecPath is the chrome binary. Empty value uses the default lookup.
	ExecPath string

	// ClickOffset bounds the random pointer offset from the element center
	// for offset clicks.
	ClickOffset float64

	// StartTimeout bounds the browser launch.
	StartTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.WindowWidth == 0 {
		v.WindowWidth = 1920
	}
	if v.WindowHeight == 0 {
		v.WindowHeight = 1080
	}
	if v.Lang == "" {
		v.Lang = "tr-TR"
	}
	if v.ClickOffset == 0 {
		v.ClickOffset = 5
	}
	if v.StartTimeout == 0 {
		v.StartTimeout = 30 * time.Second
	}
	if v.UserAgent == "" && v.Evasion {
		v.UserAgent = inventory.RandomUserAgent()
	}
}

func (v *Options) Check() error {
	if v.WindowWidth < 320 || v.WindowHeight < 240 {
		return fmt.Errorf("window size %dx%d is too small: %w", v.WindowWidth, v.WindowHeight, os.ErrInvalid)
	}
	if v.ClickOffset < 0 {
		return fmt.Errorf("click offset cannot be negative: %w", os.ErrInvalid)
	}
	if len(v.ExecPath) != 0 {
		if _, err := os.Stat(v.ExecPath); err != nil {
			return fmt.Errorf("could not stat browser binary: %w", err)
		}
	}
	return nil
}
