// Copyright (c) 2023 BVK Chaitanya

package pushover

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

var testingKeys *Keys

func checkKeys() bool {
	if testingKeys != nil {
		return true
	}
	data, err := os.ReadFile("pushover-keys.json")
	if err != nil {
		return false
	}
	s := new(Keys)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	testingKeys = s
	return true
}

func TestSendMessage(t *testing.T) {
	if !checkKeys() {
		t.Skip("no keys")
		return
	}

	c, err := New(testingKeys)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendMessage(context.Background(), time.Now(), t.Name()); err != nil {
		t.Fatal(err)
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	s := httptest.NewServer(h)
	t.Cleanup(s.Close)

	c, err := New(&Keys{ApplicationKey: "app", UserKey: "user"})
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatal(err)
	}
	c.endpoint = *u
	return c
}

func TestSendMessageLocal(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &got)
		io.WriteString(w, `{"status":1,"request":"x"}`)
	})

	msg := strings.Repeat("a", MaxMessageLen+10)
	if err := c.SendMessage(context.Background(), time.Unix(100, 0), msg); err != nil {
		t.Fatal(err)
	}
	if got["token"] != "app" || got["user"] != "user" {
		t.Fatalf("want app/user keys, got %v/%v", got["token"], got["user"])
	}
	if s, _ := got["message"].(string); len(s) != MaxMessageLen {
		t.Fatalf("want truncated message of %d bytes, got %d", MaxMessageLen, len(s))
	}
	if got["title"] != Title || got["priority"] != float64(NormalPriority) {
		t.Fatalf("want title %q with normal priority, got %v/%v", Title, got["title"], got["priority"])
	}

	if err := c.SendAlert(context.Background(), time.Now(), "order placed"); err != nil {
		t.Fatal(err)
	}
	if got["priority"] != float64(HighPriority) {
		t.Fatalf("want high priority for alerts, got %v", got["priority"])
	}
}

func TestSendMessageRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"status":0,"errors":["user identifier is invalid"]}`)
	})
	err := c.SendMessage(context.Background(), time.Now(), "hello")
	if err == nil || !strings.Contains(err.Error(), "user identifier is invalid") {
		t.Fatalf("want pushover error message, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	if _, err := New(&Keys{ApplicationKey: "app"}); err == nil {
		t.Fatalf("want error for a missing user key")
	}
}
