// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bvk/vinbot/pushover"
	"github.com/bvk/vinbot/telegram"
)

// Secrets holds the messenger credentials. Payment details are never part of
// the secrets file; they live in the config file or the environment.
type Secrets struct {
	Pushover *pushover.Keys    `json:"pushover,omitempty"`
	Telegram *telegram.Secrets `json:"telegram,omitempty"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		if os.IsNotExist(err) {
			return new(Secrets), nil
		}
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("could not decode secrets file %q: %w", fpath, err)
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

func (v *Secrets) Check() error {
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	if v.Pushover != nil {
		if err := v.Pushover.Check(); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the secrets file readable only by the owner.
func (v *Secrets) Save(fpath string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode secrets: %w", err)
	}
	if err := os.WriteFile(fpath, data, 0600); err != nil {
		return fmt.Errorf("could not write secrets file %q: %w", fpath, err)
	}
	return nil
}
