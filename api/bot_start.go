// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"
	"path/filepath"
)

const BotStartPath = "/bot/start"

// BotStartRequest starts a new run with a configuration file readable by the
// server. Payment details never travel in the request.
type BotStartRequest struct {
	ConfigFile string

	// Optional overrides for the file settings.
	Debug       *bool
	Headless    *bool
	MaxAttempts int
}

func (r *BotStartRequest) Check() error {
	if len(r.ConfigFile) == 0 {
		return fmt.Errorf("config file path is required: %w", os.ErrInvalid)
	}
	if !filepath.IsAbs(r.ConfigFile) {
		return fmt.Errorf("config file path %q must be absolute: %w", r.ConfigFile, os.ErrInvalid)
	}
	if r.MaxAttempts < 0 {
		return fmt.Errorf("max attempts cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

type BotStartResponse struct {
	RunID string
}
