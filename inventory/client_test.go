// Copyright (c) 2025 BVK Chaitanya

package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientQuery(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var filter map[string]any
		if err := json.Unmarshal([]byte(r.URL.Query().Get("query")), &filter); err != nil {
			t.Errorf("could not decode query filter: %v", err)
		}
		if v := filter["zip"]; v != "34000" {
			t.Errorf("want zip 34000, got %v", v)
		}
		if v := filter["market"]; v != "TR" {
			t.Errorf("want market TR, got %v", v)
		}
		if v := r.URL.Query().Get("count"); v != "50" {
			t.Errorf("want count 50, got %q", v)
		}
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	c, err := New(&Options{Endpoint: server.URL, RequestsPerSecond: 100})
	if err != nil {
		t.Fatal(err)
	}
	listings, err := c.Query(context.Background(), DefaultQuery("34000"))
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 2 {
		t.Fatalf("want 2 listings, got %d", len(listings))
	}
	if n := requests.Load(); n != 2 {
		t.Fatalf("want one retry after throttling, got %d requests", n)
	}
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c, err := New(&Options{Endpoint: server.URL, RequestsPerSecond: 100})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Query(context.Background(), DefaultQuery("34000"))
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("want TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusForbidden {
		t.Fatalf("want status 403, got %d", terr.StatusCode)
	}
}

func TestClientParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>captcha</html>"))
	}))
	defer server.Close()

	c, err := New(&Options{Endpoint: server.URL, RequestsPerSecond: 100})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Query(context.Background(), DefaultQuery("34000"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("want ParseError, got %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c, err := New(&Options{Endpoint: server.URL, HttpClientTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Query(context.Background(), DefaultQuery("34000"))
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("want TransportError on timeout, got %v", err)
	}
}

func TestOptionsCheck(t *testing.T) {
	if _, err := New(&Options{HttpClientTimeout: time.Minute}); err == nil {
		t.Fatalf("want error for timeouts above 10s")
	}
}
