// Copyright (c) 2023 BVK Chaitanya

package httputil

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// ReadyTimeout is the max time to wait for a new listener to answer the
	// readiness probe.
	ReadyTimeout time.Duration

	// ReadyProbeInterval is the wait between readiness probes.
	ReadyProbeInterval time.Duration

	// ReadHeaderTimeout limits the time to read request headers.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the max time Stop waits for in-flight requests before
	// closing the connections. Hijacked (websocket) connections are not
	// waited for.
	ShutdownTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.ReadyTimeout == 0 {
		v.ReadyTimeout = 10 * time.Second
	}
	if v.ReadyProbeInterval == 0 {
		v.ReadyProbeInterval = time.Second
	}
	if v.ReadHeaderTimeout == 0 {
		v.ReadHeaderTimeout = 10 * time.Second
	}
	if v.ShutdownTimeout == 0 {
		v.ShutdownTimeout = 5 * time.Second
	}
}

func (v *Options) Check() error {
	if v.ReadyProbeInterval > v.ReadyTimeout {
		return fmt.Errorf("ready probe interval %s exceeds the ready timeout %s: %w", v.ReadyProbeInterval, v.ReadyTimeout, os.ErrInvalid)
	}
	if v.ReadHeaderTimeout < 0 || v.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
