// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"github.com/bvk/vinbot/bot"
)

type Options struct {
	// ConfigFile is used by start requests that do not name a config file.
	ConfigFile string

	// EventHistory is the number of recent events kept for new websocket
	// subscribers.
	EventHistory int

	// NoNotify disables the messenger notifications for terminal events.
	NoNotify bool

	// Bot holds the bot options. Publisher field is always overwritten with
	// the server's event bus.
	Bot *bot.Options
}

func (v *Options) setDefaults() {
	if v.EventHistory == 0 {
		v.EventHistory = 100
	}
	if v.Bot == nil {
		v.Bot = new(bot.Options)
	}
}

func (v *Options) Check() error {
	return nil
}
