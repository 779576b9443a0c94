// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bvk/vinbot/envfile"
)

// EnvFile is the name of the optional environment file in the user's home
// directory. Variables in it are defined without the VINBOT_ prefix.
const EnvFile = ".vinbot.env"

const EnvPrefix = "VINBOT_"

// LoadEnvFile copies variables from the env file into the process
// environment with the VINBOT_ prefix. Existing variables are not replaced.
func LoadEnvFile(opts ...envfile.Option) error {
	opts = append([]envfile.Option{envfile.VariableNamePrefix(EnvPrefix)}, opts...)
	if err := envfile.UpdateEnv(EnvFile, opts...); err != nil {
		return fmt.Errorf("could not load %s: %w", EnvFile, err)
	}
	return nil
}

// ApplyEnv overrides buyer and payment fields from VINBOT_ environment
// variables so that card data can stay out of the config file.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"FIRST_NAME", &c.Buyer.FirstName},
		{"LAST_NAME", &c.Buyer.LastName},
		{"EMAIL", &c.Buyer.Email},
		{"PHONE", &c.Buyer.Phone},
		{"CARD_HOLDER", &c.Payment.Holder},
		{"CARD_NUMBER", &c.Payment.Number},
		{"CARD_CVV", &c.Payment.CVV},
		{"BILLING_ZIP", &c.Payment.BillingZip},
		{"DELIVERY_ZIP", &c.Vehicle.DeliveryZip},
	}
	for _, s := range strs {
		if v, ok := lookup(EnvPrefix + s.key); ok && len(v) != 0 {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"CARD_EXPIRY_MONTH", &c.Payment.ExpiryMonth},
		{"CARD_EXPIRY_YEAR", &c.Payment.ExpiryYear},
	}
	for _, s := range ints {
		v, ok := lookup(EnvPrefix + s.key)
		if !ok || len(v) == 0 {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Field: EnvPrefix + s.key, Reason: "must be a number"}
		}
		*s.dst = n
	}
	c.Buyer.Phone = NormalizePhone(c.Buyer.Phone)
	return nil
}

// EnvVars returns the buyer and payment fields as env file variables, without
// the VINBOT_ prefix. Empty fields are skipped.
func (c *Config) EnvVars() map[string]string {
	vars := map[string]string{
		"FIRST_NAME":   c.Buyer.FirstName,
		"LAST_NAME":    c.Buyer.LastName,
		"EMAIL":        c.Buyer.Email,
		"PHONE":        c.Buyer.Phone,
		"CARD_HOLDER":  c.Payment.Holder,
		"CARD_NUMBER":  c.Payment.Number,
		"CARD_CVV":     c.Payment.CVV,
		"BILLING_ZIP":  c.Payment.BillingZip,
		"DELIVERY_ZIP": c.Vehicle.DeliveryZip,
	}
	if c.Payment.ExpiryMonth != 0 {
		vars["CARD_EXPIRY_MONTH"] = strconv.Itoa(c.Payment.ExpiryMonth)
	}
	if c.Payment.ExpiryYear != 0 {
		vars["CARD_EXPIRY_YEAR"] = strconv.Itoa(c.Payment.ExpiryYear)
	}
	for k, v := range vars {
		if len(v) == 0 {
			delete(vars, k)
		}
	}
	return vars
}

// EnvFilePath returns the env file path in the user's home directory.
func EnvFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, EnvFile), nil
}

// SaveEnvFile writes the buyer and payment fields into the env file at fpath.
func (c *Config) SaveEnvFile(fpath string) error {
	if err := envfile.Write(fpath, c.EnvVars()); err != nil {
		return fmt.Errorf("could not save %s: %w", fpath, err)
	}
	return nil
}
