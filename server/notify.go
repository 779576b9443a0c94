// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bvk/vinbot/events"
	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

// notifiable returns true for events that are forwarded to the messengers.
func notifiable(e *events.Event) bool {
	return e.Kind.Terminal() || e.Kind == events.ConfirmationNeeded
}

// isAlert returns true for order outcomes and fatal run errors.
func isAlert(e *events.Event) bool {
	return e.Level == events.Success || e.Level == events.Error
}

// notifyText formats an event for messengers. Timestamps are added by the
// messenger clients.
func notifyText(e *events.Event) string {
	var sb strings.Builder
	if len(e.RunID) != 0 {
		fmt.Fprintf(&sb, "[%s] ", e.RunID)
	}
	fmt.Fprintf(&sb, "%s: %s", e.Level, e.Message)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n%s: %s", k, e.Attrs[k])
	}
	return sb.String()
}

func (s *Server) notify(ctx context.Context, receiver *topic.Receiver[*events.Event]) {
	eventsCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		slog.Error("could not receive from the event bus", "err", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case e, ok := <-eventsCh:
			if !ok {
				return
			}
			if !notifiable(e) {
				continue
			}
			sctx, cancel := context.WithTimeout(ctx, time.Minute)
			s.send(sctx, e.Time, isAlert(e), notifyText(e))
			cancel()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// serveEvents streams run events to a websocket client as JSON messages.
// Recent events are sent first when the request has a non-empty "recent"
// query parameter.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	receiver, err := s.bus.Subscribe()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer receiver.Close()

	eventsCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("could not upgrade to websocket", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancelCause(r.Context())
	defer cancel(nil)

	// Client messages are ignored; reads only detect the disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel(err)
				return
			}
		}
	}()

	if len(r.URL.Query().Get("recent")) != 0 {
		for _, e := range s.bus.Recent() {
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			slog.Debug("websocket event stream closed", "remote", r.RemoteAddr, "cause", context.Cause(ctx))
			return

		case <-s.cg.Context().Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"))
			return

		case e, ok := <-eventsCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				slog.Warn("could not send event over websocket", "remote", r.RemoteAddr, "err", err)
				return
			}
		}
	}
}
