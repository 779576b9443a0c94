// Copyright (c) 2025 BVK Chaitanya

package scheduler

import (
	"fmt"
	"os"
	"time"
)

// TimeOfDay is a wall clock time in the local time zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses HH:MM strings.
func ParseTimeOfDay(s string) (*TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return nil, fmt.Errorf("time of day %q is not in HH:MM format: %w", s, os.ErrInvalid)
	}
	return &TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Pending returns true if the time of day is not yet reached on the day of
// `now`.
func (t TimeOfDay) Pending(now time.Time) bool {
	h, m, _ := now.Clock()
	if h != t.Hour {
		return h < t.Hour
	}
	return m < t.Minute
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(data []byte) error {
	v, err := ParseTimeOfDay(string(data))
	if err != nil {
		return err
	}
	*t = *v
	return nil
}

// Settings holds the polling behavior for one run.
type Settings struct {
	PollInterval time.Duration

	MaxAttempts int

	// Evasion enables the bot-evasion mode: wait intervals get a random
	// jitter, text is typed with keystroke pacing and interactions get
	// settle delays.
	Evasion bool

	// JitterBound is the maximum absolute jitter added to the poll interval
	// when Evasion is enabled.
	JitterBound time.Duration

	Headless bool

	Debug bool

	// SaleStart, when non-nil, disables inventory queries before the given
	// local time of day.
	SaleStart *TimeOfDay

	// RequestTimeout bounds a single inventory query.
	RequestTimeout time.Duration
}

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultMaxAttempts    = 100
	DefaultJitterBound    = time.Second
	DefaultRequestTimeout = 10 * time.Second

	MinWait = time.Second
)

func (s *Settings) setDefaults() {
	if s.PollInterval == 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.JitterBound == 0 {
		s.JitterBound = DefaultJitterBound
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
}

func (s *Settings) Check() error {
	if s.PollInterval < time.Second || s.PollInterval > time.Minute {
		return fmt.Errorf("poll interval %s must be within 1s and 60s: %w", s.PollInterval, os.ErrInvalid)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least one: %w", os.ErrInvalid)
	}
	if s.JitterBound < 0 {
		return fmt.Errorf("jitter bound cannot be negative: %w", os.ErrInvalid)
	}
	if s.RequestTimeout <= 0 || s.RequestTimeout > 10*time.Second {
		return fmt.Errorf("request timeout %s must be within 10s: %w", s.RequestTimeout, os.ErrInvalid)
	}
	if t := s.SaleStart; t != nil {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return fmt.Errorf("invalid sale start time %s: %w", t, os.ErrInvalid)
		}
	}
	return nil
}
