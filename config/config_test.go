// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bvk/vinbot/envfile"
	"github.com/bvk/vinbot/inventory"
	"github.com/bvk/vinbot/workflow"
)

const sampleJSON = `{
  "buyer": {
    "first_name": "Gizem",
    "last_name": "Türkoğlu",
    "email": "gizem@example.com",
    "phone": "05056919179"
  },
  "payment": {
    "holder": "GIZEM TURKOGLU",
    "number": "4111111111111111",
    "expiry_month": 12,
    "expiry_year": 2030,
    "cvv": "123",
    "billing_zip": "34000"
  },
  "vehicle": {
    "max_price": 2000000,
    "colors": ["red", "standard"],
    "delivery_zip": "06660"
  },
  "bot": {
    "poll_interval_secs": 5,
    "max_attempts": 100,
    "sale_start": "17:59"
  }
}`

const sampleYAML = `
buyer:
  first_name: Gizem
  last_name: Türkoğlu
  email: gizem@example.com
  phone: "+905056919179"
payment:
  holder: GIZEM TURKOGLU
  number: "4111111111111111"
  expiry_month: 12
  expiry_year: 2030
  cvv: "123"
  billing_zip: "34000"
vehicle:
  variant: Standard Range
  max_price: "2000000"
  colors: [white, red]
  seat_color_rule: false
  delivery_zip: "06660"
bot:
  evasion: false
  confirm_policy: strict
`

var checkTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleConfig(t *testing.T) *Config {
	t.Helper()
	c, err := Parse([]byte(sampleJSON), "json")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestParseJSON(t *testing.T) {
	c := sampleConfig(t)
	if err := c.Check(checkTime); err != nil {
		t.Fatal(err)
	}
	if c.Buyer.Phone != "+905056919179" {
		t.Fatalf("want normalized phone, got %s", c.Buyer.Phone)
	}
	if !c.Evasion() {
		t.Fatalf("want evasion enabled by default")
	}

	criteria := c.Criteria()
	if criteria.Variant != "Standard Range" {
		t.Fatalf("want default variant, got %s", criteria.Variant)
	}
	if len(criteria.Colors) != 2 || criteria.Colors[0] != inventory.Red {
		t.Fatalf("want red first, got %v", criteria.Colors)
	}
	if !criteria.SeatColorRule {
		t.Fatalf("want seat color rule enabled by default")
	}

	s := c.Settings()
	if s.PollInterval != 5*time.Second || s.MaxAttempts != 100 {
		t.Fatalf("want 5s/100 attempts, got %s/%d", s.PollInterval, s.MaxAttempts)
	}
	if s.SaleStart == nil || s.SaleStart.String() != "17:59" {
		t.Fatalf("want sale start 17:59, got %v", s.SaleStart)
	}
	if s.JitterBound != time.Second {
		t.Fatalf("want 1s jitter bound, got %s", s.JitterBound)
	}
	if c.ConfirmPolicy() != workflow.Optimistic {
		t.Fatalf("want optimistic policy, got %s", c.ConfirmPolicy())
	}
	if oc := c.OrderContext(); oc.DeliveryZip != "06660" || oc.Payment.Number != "4111111111111111" {
		t.Fatalf("want order context from config, got %+v", oc)
	}
}

func TestParseYAML(t *testing.T) {
	c, err := Parse([]byte(sampleYAML), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Check(checkTime); err != nil {
		t.Fatal(err)
	}
	if c.Evasion() {
		t.Fatalf("want evasion disabled")
	}
	if c.Criteria().SeatColorRule {
		t.Fatalf("want seat color rule disabled")
	}
	if c.ConfirmPolicy() != workflow.Strict {
		t.Fatalf("want strict policy, got %s", c.ConfirmPolicy())
	}
	if v := c.Vehicle.MaxPrice.String(); v != "2000000" {
		t.Fatalf("want max price 2000000, got %s", v)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]func(*Config){
		"buyer.first_name":     func(c *Config) { c.Buyer.FirstName = "G" },
		"buyer.email":          func(c *Config) { c.Buyer.Email = "gizem@" },
		"buyer.phone":          func(c *Config) { c.Buyer.Phone = "+90505" },
		"payment.number":       func(c *Config) { c.Payment.Number = "4111111111111112" },
		"payment.cvv":          func(c *Config) { c.Payment.CVV = "12" },
		"payment.expiry_year":  func(c *Config) { c.Payment.ExpiryYear = 2024 },
		"payment.expiry_month": func(c *Config) { c.Payment.ExpiryYear, c.Payment.ExpiryMonth = 2025, 5 },
		"payment.billing_zip":  func(c *Config) { c.Payment.BillingZip = "3400" },
		"vehicle.max_price":    func(c *Config) { c.Vehicle.MaxPrice = c.Vehicle.MaxPrice.Neg() },
		"vehicle.colors":       func(c *Config) { c.Vehicle.Colors = []string{"red", "red"} },
		"vehicle.delivery_zip": func(c *Config) { c.Vehicle.DeliveryZip = "ABCDE" },
		"bot.poll_interval_secs": func(c *Config) {
			c.Bot.PollIntervalSecs = 61
		},
		"bot.sale_start":     func(c *Config) { c.Bot.SaleStart = "25:00" },
		"bot.confirm_policy": func(c *Config) { c.Bot.ConfirmPolicy = "hopeful" },
	}
	for field, mutate := range cases {
		c := sampleConfig(t)
		mutate(c)
		err := c.Check(checkTime)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: want ValidationError, got %v", field, err)
		}
		if verr.Field != field {
			t.Fatalf("want invalid field %s, got %s (%v)", field, verr.Field, err)
		}
	}
}

func TestUnknownColor(t *testing.T) {
	c := sampleConfig(t)
	c.Vehicle.Colors = []string{"red", "purple"}
	var verr *ValidationError
	if err := c.Check(checkTime); !errors.As(err, &verr) || verr.Field != "vehicle.colors" {
		t.Fatalf("want colors validation error, got %v", err)
	}
}

func TestLuhn(t *testing.T) {
	if !Luhn("79927398713") || !Luhn("4111111111111111") {
		t.Fatalf("want valid checksums")
	}
	if Luhn("79927398710") || Luhn("") || Luhn("4111-1111") {
		t.Fatalf("want invalid checksums")
	}
}

func TestNormalizePhone(t *testing.T) {
	for in, want := range map[string]string{
		"05056919179":   "+905056919179",
		"5056919179":    "+905056919179",
		"+905056919179": "+905056919179",
		"":              "",
	} {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("%q: want %q, got %q", in, want, got)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	c := sampleConfig(t)
	env := map[string]string{
		"VINBOT_CARD_NUMBER":       "5555555555554444",
		"VINBOT_CARD_CVV":          "321",
		"VINBOT_CARD_EXPIRY_MONTH": "3",
		"VINBOT_PHONE":             "5321112233",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := c.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if c.Payment.Number != "5555555555554444" || c.Payment.CVV != "321" || c.Payment.ExpiryMonth != 3 {
		t.Fatalf("want payment from env, got %s", c.Payment)
	}
	if c.Buyer.Phone != "+905321112233" {
		t.Fatalf("want normalized phone from env, got %s", c.Buyer.Phone)
	}
	if err := c.Check(checkTime); err != nil {
		t.Fatal(err)
	}

	env["VINBOT_CARD_EXPIRY_YEAR"] = "soon"
	if err := c.ApplyEnv(lookup); err == nil {
		t.Fatalf("want error for non-numeric expiry year")
	}
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	fpath := filepath.Join(dir, "config.yaml")

	c := sampleConfig(t)
	if err := c.Save(fpath); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(fpath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("want 0600 permissions, got %v", info.Mode().Perm())
	}

	data, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := Parse(data, filepath.Ext(fpath))
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Payment.Number != c.Payment.Number || loaded.Vehicle.DeliveryZip != "06660" {
		t.Fatalf("want saved values back, got %+v", loaded.Vehicle)
	}
	if !loaded.Vehicle.MaxPrice.Equal(c.Vehicle.MaxPrice) {
		t.Fatalf("want max price %s, got %s", c.Vehicle.MaxPrice, loaded.Vehicle.MaxPrice)
	}
}

func TestSaveEnvFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), EnvFile)
	if err := os.WriteFile(fpath, []byte("EMAIL=old@example.com\nOTHER=1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c := sampleConfig(t)
	if err := c.SaveEnvFile(fpath); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(fpath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := fi.Mode().Perm(); perm != 0600 {
		t.Fatalf("want 0600 env file, got %o", perm)
	}

	data, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "EMAIL="+c.Buyer.Email || lines[1] != "OTHER=1" {
		t.Fatalf("want existing lines updated in place, got %q", lines[:2])
	}
	env := make(map[string]string)
	for _, line := range lines {
		k, v, _ := strings.Cut(line, "=")
		env[EnvPrefix+k] = v
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	x := new(Config)
	if err := x.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if x.Buyer != c.Buyer || x.Payment != c.Payment {
		t.Fatalf("want buyer and payment restored from the env file")
	}
	for k := range c.EnvVars() {
		t.Setenv(EnvPrefix+k, "")
	}
	if err := LoadEnvFile(envfile.SearchDir(filepath.Dir(fpath))); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv(EnvPrefix + "CARD_CVV"); v != c.Payment.CVV {
		t.Fatalf("want cvv loaded into the environment")
	}
}

func TestSaleStartOptional(t *testing.T) {
	c := sampleConfig(t)
	c.Bot.SaleStart = ""
	if err := c.Check(checkTime); err != nil {
		t.Fatal(err)
	}
	if s := c.Settings(); s.SaleStart != nil {
		t.Fatalf("want no sale start gate for an empty value, got %v", s.SaleStart)
	}
}
