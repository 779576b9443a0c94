// Copyright (c) 2025 BVK Chaitanya

// Package config loads and validates the bot configuration: buyer identity,
// payment card, vehicle preferences and polling behavior.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bvk/vinbot/browser"
	"github.com/bvk/vinbot/inventory"
	"github.com/bvk/vinbot/matcher"
	"github.com/bvk/vinbot/scheduler"
	"github.com/bvk/vinbot/workflow"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Vehicle struct {
	Variant       string          `json:"variant" yaml:"variant"`
	MaxPrice      decimal.Decimal `json:"max_price" yaml:"max_price"`
	Colors        []string        `json:"colors" yaml:"colors"`
	SeatColorRule *bool           `json:"seat_color_rule,omitempty" yaml:"seat_color_rule,omitempty"`
	DeliveryZip   string          `json:"delivery_zip" yaml:"delivery_zip"`
}

type Bot struct {
	PollIntervalSecs   int    `json:"poll_interval_secs" yaml:"poll_interval_secs"`
	MaxAttempts        int    `json:"max_attempts" yaml:"max_attempts"`
	Evasion            *bool  `json:"evasion,omitempty" yaml:"evasion,omitempty"`
	JitterMillis       int    `json:"jitter_millis,omitempty" yaml:"jitter_millis,omitempty"`
	Headless           bool   `json:"headless" yaml:"headless"`
	Debug              bool   `json:"debug" yaml:"debug"`
	KeepOpen           bool   `json:"keep_open,omitempty" yaml:"keep_open,omitempty"`
	SaleStart          string `json:"sale_start,omitempty" yaml:"sale_start,omitempty"`
	RequestTimeoutSecs int    `json:"request_timeout_secs,omitempty" yaml:"request_timeout_secs,omitempty"`
	ConfirmPolicy      string `json:"confirm_policy,omitempty" yaml:"confirm_policy,omitempty"`
}

type Browser struct {
	UserAgent    string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	ExecPath     string `json:"exec_path,omitempty" yaml:"exec_path,omitempty"`
	WindowWidth  int    `json:"window_width,omitempty" yaml:"window_width,omitempty"`
	WindowHeight int    `json:"window_height,omitempty" yaml:"window_height,omitempty"`
	Lang         string `json:"lang,omitempty" yaml:"lang,omitempty"`
}

type Inventory struct {
	Endpoint          string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Model             string  `json:"model,omitempty" yaml:"model,omitempty"`
	Market            string  `json:"market,omitempty" yaml:"market,omitempty"`
	Language          string  `json:"language,omitempty" yaml:"language,omitempty"`
	SuperRegion       string  `json:"super_region,omitempty" yaml:"super_region,omitempty"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	DesignURL         string  `json:"design_url,omitempty" yaml:"design_url,omitempty"`
}

// Config is the on-disk bot configuration.
type Config struct {
	Buyer     workflow.Buyer   `json:"buyer" yaml:"buyer"`
	Payment   workflow.Payment `json:"payment" yaml:"payment"`
	Vehicle   Vehicle          `json:"vehicle" yaml:"vehicle"`
	Bot       Bot              `json:"bot" yaml:"bot"`
	Browser   Browser          `json:"browser" yaml:"browser"`
	Inventory Inventory        `json:"inventory" yaml:"inventory"`
}

var defaultColors = []string{string(inventory.Red), string(inventory.Standard)}

func (c *Config) setDefaults() {
	if len(c.Vehicle.Variant) == 0 {
		c.Vehicle.Variant = matcher.DefaultVariant
	}
	if len(c.Vehicle.Colors) == 0 {
		c.Vehicle.Colors = append([]string(nil), defaultColors...)
	}
	if c.Vehicle.SeatColorRule == nil {
		v := true
		c.Vehicle.SeatColorRule = &v
	}
	if c.Bot.PollIntervalSecs == 0 {
		c.Bot.PollIntervalSecs = int(scheduler.DefaultPollInterval / time.Second)
	}
	if c.Bot.MaxAttempts == 0 {
		c.Bot.MaxAttempts = scheduler.DefaultMaxAttempts
	}
	if c.Bot.Evasion == nil {
		v := true
		c.Bot.Evasion = &v
	}
	if c.Bot.JitterMillis == 0 {
		c.Bot.JitterMillis = int(scheduler.DefaultJitterBound / time.Millisecond)
	}
	if c.Bot.RequestTimeoutSecs == 0 {
		c.Bot.RequestTimeoutSecs = int(scheduler.DefaultRequestTimeout / time.Second)
	}
	if len(c.Bot.ConfirmPolicy) == 0 {
		c.Bot.ConfirmPolicy = string(workflow.Optimistic)
	}
	c.Buyer.Phone = NormalizePhone(c.Buyer.Phone)
}

// Parse decodes configuration data. YAML is used when the format is "yaml"
// or "yml"; JSON otherwise. Defaults are applied but the result is not
// validated.
func Parse(data []byte, format string) (*Config, error) {
	c := new(Config)
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("could not decode yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("could not decode json config: %w", err)
		}
	}
	c.setDefaults()
	return c, nil
}

// Load reads the configuration file, overlays values from the environment
// and validates the result.
func Load(fpath string) (*Config, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	c, err := Parse(data, filepath.Ext(fpath))
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Check(time.Now()); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration in JSON or YAML form based on the file
// extension.
func (c *Config) Save(fpath string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(fpath)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	if err := os.WriteFile(fpath, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}
	return nil
}

func (c *Config) Criteria() *matcher.Criteria {
	colors := make([]inventory.Color, 0, len(c.Vehicle.Colors))
	for _, s := range c.Vehicle.Colors {
		color, err := inventory.ParseColor(s)
		if err != nil {
			continue
		}
		colors = append(colors, color)
	}
	return &matcher.Criteria{
		Variant:       c.Vehicle.Variant,
		MaxPrice:      c.Vehicle.MaxPrice,
		Colors:        colors,
		SeatColorRule: c.Vehicle.SeatColorRule != nil && *c.Vehicle.SeatColorRule,
		DeliveryZip:   c.Vehicle.DeliveryZip,
	}
}

func (c *Config) Evasion() bool {
	return c.Bot.Evasion == nil || *c.Bot.Evasion
}

func (c *Config) Settings() *scheduler.Settings {
	s := &scheduler.Settings{
		PollInterval:   time.Duration(c.Bot.PollIntervalSecs) * time.Second,
		MaxAttempts:    c.Bot.MaxAttempts,
		Evasion:        c.Evasion(),
		JitterBound:    time.Duration(c.Bot.JitterMillis) * time.Millisecond,
		Headless:       c.Bot.Headless,
		Debug:          c.Bot.Debug,
		RequestTimeout: time.Duration(c.Bot.RequestTimeoutSecs) * time.Second,
	}
	if len(c.Bot.SaleStart) != 0 {
		if t, err := scheduler.ParseTimeOfDay(c.Bot.SaleStart); err == nil {
			s.SaleStart = t
		}
	}
	return s
}

func (c *Config) OrderContext() *workflow.OrderContext {
	return &workflow.OrderContext{
		Buyer:       c.Buyer,
		Payment:     c.Payment,
		DeliveryZip: c.Vehicle.DeliveryZip,
	}
}

func (c *Config) ConfirmPolicy() workflow.ConfirmPolicy {
	p, err := workflow.ParseConfirmPolicy(c.Bot.ConfirmPolicy)
	if err != nil {
		return workflow.Optimistic
	}
	return p
}

func (c *Config) BrowserOptions() *browser.Options {
	return &browser.Options{
		Headless:     c.Bot.Headless,
		UserAgent:    c.Browser.UserAgent,
		Evasion:      c.Evasion(),
		WindowWidth:  c.Browser.WindowWidth,
		WindowHeight: c.Browser.WindowHeight,
		Lang:         c.Browser.Lang,
		ExecPath:     c.Browser.ExecPath,
	}
}

func (c *Config) InventoryOptions() *inventory.Options {
	return &inventory.Options{
		Endpoint:          c.Inventory.Endpoint,
		RequestsPerSecond: c.Inventory.RequestsPerSecond,
		Evasion:           c.Evasion(),
		HttpClientTimeout: time.Duration(c.Bot.RequestTimeoutSecs) * time.Second,
	}
}

// Query returns the inventory query for the configured market and zip.
func (c *Config) Query() *inventory.Query {
	q := inventory.DefaultQuery(c.Vehicle.DeliveryZip)
	if len(c.Inventory.Model) != 0 {
		q.Model = c.Inventory.Model
	}
	if len(c.Inventory.Market) != 0 {
		q.Market = c.Inventory.Market
	}
	if len(c.Inventory.Language) != 0 {
		q.Language = c.Inventory.Language
	}
	if len(c.Inventory.SuperRegion) != 0 {
		q.SuperRegion = c.Inventory.SuperRegion
	}
	return q
}

func (c *Config) DesignURL() string {
	if len(c.Inventory.DesignURL) != 0 {
		return c.Inventory.DesignURL
	}
	return workflow.DefaultDesignURL
}
