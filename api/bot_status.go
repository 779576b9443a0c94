// Copyright (c) 2025 BVK Chaitanya

package api

import "time"

const BotStatusPath = "/bot/status"

type BotStatusRequest struct {
}

type BotStatusResponse struct {
	Running              bool
	AwaitingConfirmation bool

	ServerStartTime time.Time

	// Run is the current run, or the last finished run. Nil if the server has
	// not run the bot yet.
	Run *RunInfo
}
