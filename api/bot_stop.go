// Copyright (c) 2025 BVK Chaitanya

package api

const BotStopPath = "/bot/stop"

type BotStopRequest struct {
}

type BotStopResponse struct {
	Run *RunInfo
}
