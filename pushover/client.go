// Copyright (c) 2023 BVK Chaitanya

// Package pushover sends notifications through the pushover.net messages
// API.
package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// MaxMessageLen is the pushover limit on the message size.
const MaxMessageLen = 1024

// Title is shown as the notification title on all messages.
const Title = "vinbot"

// Priority values from the pushover api. Emergency priority needs retry
// parameters and is not supported.
const (
	LowPriority    = -1
	NormalPriority = 0
	HighPriority   = 1
)

var defaultEndpoint = url.URL{
	Scheme: "https",
	Host:   "api.pushover.net",
	Path:   "/1/messages.json",
}

type Client struct {
	keys       Keys
	endpoint   url.URL
	httpClient *http.Client
}

type message struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Priority  int    `json:"priority"`
	Timestamp int64  `json:"timestamp"`
}

type response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func New(keys *Keys) (*Client, error) {
	if err := keys.Check(); err != nil {
		return nil, err
	}
	c := &Client{
		keys:       *keys,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	return c, nil
}

// SendMessage sends a normal priority notification.
func (c *Client) SendMessage(ctx context.Context, at time.Time, msg string) error {
	return c.send(ctx, at, msg, NormalPriority)
}

// SendAlert sends a high priority notification which bypasses the user's
// quiet hours.
func (c *Client) SendAlert(ctx context.Context, at time.Time, msg string) error {
	return c.send(ctx, at, msg, HighPriority)
}

func (c *Client) send(ctx context.Context, at time.Time, msg string, priority int) error {
	if len(msg) > MaxMessageLen {
		msg = msg[:MaxMessageLen]
	}
	m := &message{
		Token:     c.keys.ApplicationKey,
		User:      c.keys.UserKey,
		Title:     Title,
		Message:   msg,
		Priority:  priority,
		Timestamp: at.Unix(),
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("could not json-encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("could not create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform post request: %w", err)
	}
	defer resp.Body.Close()

	r := new(response)
	if err := json.NewDecoder(resp.Body).Decode(r); err != nil {
		return fmt.Errorf("could not json-decode response for http-status %d: %w", resp.StatusCode, err)
	}
	if r.Status != 1 {
		if len(r.Errors) != 0 {
			return fmt.Errorf("send failed with http-status %d: %w", resp.StatusCode, errors.Join(toErrors(r.Errors)...))
		}
		return fmt.Errorf("send failed with http-status %d and request %q", resp.StatusCode, r.Request)
	}
	return nil
}

func toErrors(msgs []string) []error {
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		errs = append(errs, errors.New(m))
	}
	return errs
}
