// Copyright (c) 2023 BVK Chaitanya

// Package server hosts the long running bot services: the HTTP control API,
// the websocket event stream, the telegram command surface and messenger
// notifications.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bvk/vinbot/api"
	"github.com/bvk/vinbot/bot"
	"github.com/bvk/vinbot/ctxutil"
	"github.com/bvk/vinbot/events"
	"github.com/bvk/vinbot/pushover"
	"github.com/bvk/vinbot/telegram"
	"github.com/bvkgo/kv"
)

type Server struct {
	cg ctxutil.CloseGroup

	db kv.Database

	opts Options

	startTime time.Time

	bus *events.Bus

	bot *bot.Bot

	telegramClient *telegram.Client

	pushoverClient *pushover.Client

	handlerMap map[string]http.Handler
}

func New(ctx context.Context, secrets *Secrets, db kv.Database, opts *Options) (_ *Server, status error) {
	if secrets == nil {
		secrets = new(Secrets)
	}
	if err := secrets.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	bus := events.NewBus(opts.EventHistory)
	defer func() {
		if status != nil {
			bus.Close()
		}
	}()

	bopts := *opts.Bot
	bopts.Publisher = bus
	b, err := bot.New(db, &bopts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:         db,
		opts:       *opts,
		startTime:  time.Now(),
		bus:        bus,
		bot:        b,
		handlerMap: make(map[string]http.Handler),
	}

	if secrets.Pushover != nil {
		client, err := pushover.New(secrets.Pushover)
		if err != nil {
			return nil, fmt.Errorf("could not create pushover client: %w", err)
		}
		s.pushoverClient = client
	}

	if secrets.Telegram != nil {
		client, err := telegram.New(ctx, db, secrets.Telegram)
		if err != nil {
			return nil, fmt.Errorf("could not create telegram client: %w", err)
		}
		defer func() {
			if status != nil {
				client.Close()
			}
		}()
		s.telegramClient = client

		if err := s.addTelegramCommands(ctx); err != nil {
			return nil, err
		}
	}

	s.handlerMap[api.BotStartPath] = httpPostJSONHandler(s.doStart)
	s.handlerMap[api.BotStopPath] = httpPostJSONHandler(s.doStop)
	s.handlerMap[api.BotStatusPath] = httpPostJSONHandler(s.doStatus)
	s.handlerMap[api.BotConfirmPath] = httpPostJSONHandler(s.doConfirm)
	s.handlerMap[api.BotHistoryPath] = httpPostJSONHandler(s.doHistory)
	s.handlerMap[api.BotEventsPath] = http.HandlerFunc(s.serveEvents)

	if !opts.NoNotify {
		receiver, err := bus.Subscribe()
		if err != nil {
			return nil, fmt.Errorf("could not subscribe to the event bus: %w", err)
		}
		s.cg.Go(func(ctx context.Context) {
			defer receiver.Close()
			s.notify(ctx, receiver)
		})
	}
	return s, nil
}

// Close stops any running bot run and releases all services.
func (s *Server) Close() error {
	if err := s.bot.Close(); err != nil {
		slog.Error("could not stop the bot cleanly (ignored)", "err", err)
	}
	s.cg.Close()
	if s.telegramClient != nil {
		s.telegramClient.Close()
	}
	s.bus.Close()
	return nil
}

// HandlerMap returns the HTTP handlers for the bot API endpoints.
func (s *Server) HandlerMap() map[string]http.Handler {
	m := make(map[string]http.Handler, len(s.handlerMap))
	for k, v := range s.handlerMap {
		m[k] = v
	}
	return m
}

// Bus returns the event bus carrying all run events.
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// send delivers msg to all messengers and ignores delivery failures. Alerts
// use the high priority where the messenger supports it.
func (s *Server) send(ctx context.Context, at time.Time, alert bool, msg string) {
	if s.pushoverClient != nil {
		send := s.pushoverClient.SendMessage
		if alert {
			send = s.pushoverClient.SendAlert
		}
		if err := send(ctx, at, msg); err != nil {
			slog.Warn("could not send pushover notification (ignored)", "err", err)
		}
	}
	if s.telegramClient != nil {
		if err := s.telegramClient.SendMessage(ctx, at, msg); err != nil {
			slog.Warn("could not send telegram notification (ignored)", "err", err)
		}
	}
}
