// Copyright (c) 2025 BVK Chaitanya

package api

const BotHistoryPath = "/bot/history"

type BotHistoryRequest struct {
	// Limit is the max number of runs to return. Zero returns all runs.
	Limit int
}

type BotHistoryResponse struct {
	Runs []*RunInfo
}

// BotEventsPath is the websocket endpoint that streams run events as JSON
// messages.
const BotEventsPath = "/bot/events"
