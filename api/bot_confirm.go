// Copyright (c) 2025 BVK Chaitanya

package api

const BotConfirmPath = "/bot/confirm"

// BotConfirmRequest answers the confirmation prompt of a debug run.
type BotConfirmRequest struct {
	Approve bool
}

type BotConfirmResponse struct {
}
