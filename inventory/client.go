// Copyright (c) 2025 BVK Chaitanya

package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/bvk/vinbot/ctxutil"
	"golang.org/x/time/rate"
)

const DefaultEndpoint = "https://www.tesla.com/api/tesla/inventory/tesla"

type Options struct {
	// Endpoint is the inventory api url.
	Endpoint string

	// HttpClientTimeout bounds a single http round trip.
	HttpClientTimeout time.Duration

	// MaxRetries limits retries on throttled (429) or bad-gateway (502)
	// responses. Retries are also bounded by the caller's context.
	MaxRetries int

	// RequestsPerSecond is the steady state request rate limit.
	RequestsPerSecond float64

	// Evasion enables user-agent rotation, browser-like headers and a random
	// pre-request delay between MinPreDelay and MaxPreDelay.
	Evasion bool

	MinPreDelay time.Duration
	MaxPreDelay time.Duration
}

func (v *Options) setDefaults() {
	if len(v.Endpoint) == 0 {
		v.Endpoint = DefaultEndpoint
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
	if v.MaxRetries == 0 {
		v.MaxRetries = 2
	}
	if v.RequestsPerSecond == 0 {
		v.RequestsPerSecond = 1
	}
	if v.MinPreDelay == 0 {
		v.MinPreDelay = 500 * time.Millisecond
	}
	if v.MaxPreDelay == 0 {
		v.MaxPreDelay = 2 * time.Second
	}
}

func (v *Options) Check() error {
	if _, err := url.Parse(v.Endpoint); err != nil {
		return fmt.Errorf("invalid inventory endpoint %q: %w", v.Endpoint, err)
	}
	if v.HttpClientTimeout < 0 || v.HttpClientTimeout > 10*time.Second {
		return fmt.Errorf("http client timeout must be within 10s: %w", os.ErrInvalid)
	}
	if v.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %w", os.ErrInvalid)
	}
	if v.RequestsPerSecond < 0 {
		return fmt.Errorf("request rate cannot be negative: %w", os.ErrInvalid)
	}
	if v.MinPreDelay > v.MaxPreDelay {
		return fmt.Errorf("min pre-request delay cannot exceed the max: %w", os.ErrInvalid)
	}
	return nil
}

// Client queries the vehicle inventory http api.
type Client struct {
	opts Options

	client *http.Client

	limiter *rate.Limiter

	endpoint *url.URL
}

func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:     *opts,
		endpoint: endpoint,
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		client: &http.Client{
			Timeout: opts.HttpClientTimeout,
		},
	}
	return c, nil
}

// Query fetches one page of inventory listings.
func (c *Client) Query(ctx context.Context, q *Query) ([]*Listing, error) {
	if err := q.Check(); err != nil {
		return nil, err
	}
	values, err := q.values()
	if err != nil {
		return nil, err
	}
	addrURL := *c.endpoint
	addrURL.RawQuery = values.Encode()

	if c.opts.Evasion {
		delay := c.opts.MinPreDelay + time.Duration(rand.Int63n(int64(c.opts.MaxPreDelay-c.opts.MinPreDelay)+1))
		if err := ctxutil.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	data, err := c.httpGet(ctx, &addrURL, c.opts.MaxRetries)
	if err != nil {
		return nil, err
	}
	listings, err := ParseResponse(data)
	if err != nil {
		slog.Error("could not parse inventory response", "bytes", len(data), "err", err)
		return nil, err
	}
	slog.Debug("inventory query returned listings", "count", len(listings))
	return listings, nil
}

func (c *Client) httpGet(ctx context.Context, addrURL *url.URL, retries int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: c.opts.Endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create http get request: %w", err)
	}
	c.setHeaders(req)

	s := time.Now()
	resp, err := c.client.Do(req)
	if d := time.Since(s); d > c.opts.HttpClientTimeout {
		slog.Warn(fmt.Sprintf("get request took %s which is more than the http client timeout %s", d, c.opts.HttpClientTimeout))
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("could not perform inventory http get request", "err", err)
		}
		return nil, &TransportError{URL: c.opts.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Warn("inventory http get returned unsuccessful status code", "status-code", resp.StatusCode, "body", string(body))

		if retries > 0 && (resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusTooManyRequests) {
			timeout := time.Second
			if x := resp.Header.Get("Retry-After"); len(x) != 0 {
				if v, err := strconv.Atoi(x); err == nil {
					timeout = time.Duration(v) * time.Second
				}
			}
			if err := ctxutil.Sleep(ctx, timeout); err != nil {
				return nil, &TransportError{URL: c.opts.Endpoint, StatusCode: resp.StatusCode, Err: err}
			}
			return c.httpGet(ctx, addrURL, retries-1)
		}
		return nil, &TransportError{URL: c.opts.Endpoint, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: c.opts.Endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	return data, nil
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// RandomUserAgent returns one of a small set of current desktop browser
// user-agent strings.
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7")
	if !c.opts.Evasion {
		req.Header.Set("User-Agent", userAgents[0])
		return
	}
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
}
