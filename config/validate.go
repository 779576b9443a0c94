// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bvk/vinbot/inventory"
	"github.com/bvk/vinbot/scheduler"
	"github.com/bvk/vinbot/workflow"
)

// ValidationError reports the first invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	cardRe  = regexp.MustCompile(`^[0-9]{16}$`)
	cvvRe   = regexp.MustCompile(`^[0-9]{3}$`)
	zipRe   = regexp.MustCompile(`^[0-9]{5}$`)
	hhmmRe  = regexp.MustCompile(`^[0-2][0-9]:[0-5][0-9]$`)
)

// NormalizePhone adds the Turkish country code to local phone numbers.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 0 || strings.HasPrefix(s, "+") {
		return s
	}
	if strings.HasPrefix(s, "0") {
		return "+9" + s
	}
	return "+90" + s
}

// Luhn returns true if the digit string passes the Luhn checksum.
func Luhn(number string) bool {
	if len(number) == 0 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			if d *= 2; d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func checkName(field, v string, min int) error {
	if utf8.RuneCountInString(strings.TrimSpace(v)) < min {
		return invalid(field, "must have at least %d characters", min)
	}
	return nil
}

func (c *Config) CheckBuyer() error {
	if err := checkName("buyer.first_name", c.Buyer.FirstName, 2); err != nil {
		return err
	}
	if err := checkName("buyer.last_name", c.Buyer.LastName, 2); err != nil {
		return err
	}
	if !emailRe.MatchString(c.Buyer.Email) {
		return invalid("buyer.email", "not a valid email address")
	}
	if !phoneRe.MatchString(c.Buyer.Phone) {
		return invalid("buyer.phone", "must have 10 to 15 digits")
	}
	return nil
}

func (c *Config) CheckPayment(now time.Time) error {
	p := &c.Payment
	if err := checkName("payment.holder", p.Holder, 3); err != nil {
		return err
	}
	if !cardRe.MatchString(p.Number) {
		return invalid("payment.number", "must have 16 digits")
	}
	if !Luhn(p.Number) {
		return invalid("payment.number", "failed the checksum")
	}
	if p.ExpiryMonth < 1 || p.ExpiryMonth > 12 {
		return invalid("payment.expiry_month", "must be within 1 and 12")
	}
	if p.ExpiryYear < now.Year() {
		return invalid("payment.expiry_year", "card has expired")
	}
	if p.ExpiryYear == now.Year() && p.ExpiryMonth < int(now.Month()) {
		return invalid("payment.expiry_month", "card has expired")
	}
	if !cvvRe.MatchString(p.CVV) {
		return invalid("payment.cvv", "must have 3 digits")
	}
	if !zipRe.MatchString(p.BillingZip) {
		return invalid("payment.billing_zip", "must have 5 digits")
	}
	return nil
}

// Check validates the configuration. Card expiry is validated against the
// input time.
func (c *Config) Check(now time.Time) error {
	if err := c.CheckBuyer(); err != nil {
		return err
	}
	if err := c.CheckPayment(now); err != nil {
		return err
	}
	if err := c.CheckVehicle(); err != nil {
		return err
	}
	return c.CheckBot()
}

// CheckVehicle validates the vehicle preferences.
func (c *Config) CheckVehicle() error {
	v := &c.Vehicle
	if !v.MaxPrice.IsPositive() {
		return invalid("vehicle.max_price", "must be positive")
	}
	if len(v.Colors) == 0 {
		return invalid("vehicle.colors", "cannot be empty")
	}
	var seen []inventory.Color
	for _, s := range v.Colors {
		color, err := inventory.ParseColor(s)
		if err != nil {
			return invalid("vehicle.colors", "unknown color %q", s)
		}
		if slices.Contains(seen, color) {
			return invalid("vehicle.colors", "color %q is repeated", s)
		}
		seen = append(seen, color)
	}
	if !zipRe.MatchString(v.DeliveryZip) {
		return invalid("vehicle.delivery_zip", "must have 5 digits")
	}
	return nil
}

// CheckBot validates the polling and order settings. An empty sale start
// disables the sale start gate.
func (c *Config) CheckBot() error {
	b := &c.Bot
	if b.PollIntervalSecs < 1 || b.PollIntervalSecs > 60 {
		return invalid("bot.poll_interval_secs", "must be within 1 and 60")
	}
	if b.MaxAttempts < 1 {
		return invalid("bot.max_attempts", "must be at least 1")
	}
	if len(b.SaleStart) != 0 {
		if !hhmmRe.MatchString(b.SaleStart) {
			return invalid("bot.sale_start", "must be in HH:MM form")
		}
		if _, err := scheduler.ParseTimeOfDay(b.SaleStart); err != nil {
			return invalid("bot.sale_start", "%v", err)
		}
	}
	if _, err := workflow.ParseConfirmPolicy(b.ConfirmPolicy); err != nil {
		return invalid("bot.confirm_policy", "must be optimistic or strict")
	}
	if err := c.Settings().Check(); err != nil {
		return invalid("bot", "%v", err)
	}
	return nil
}
