// Copyright (c) 2025 BVK Chaitanya

// Package api defines the JSON request and response types for the bot
// server endpoints.
package api

import (
	"github.com/bvk/vinbot/gobs"
)

// RunInfo is a run journal entry as reported to clients.
type RunInfo struct {
	*gobs.RunRecord

	Running bool
}

func NewRunInfo(rec *gobs.RunRecord) *RunInfo {
	if rec == nil {
		return nil
	}
	return &RunInfo{RunRecord: rec, Running: rec.Running()}
}
