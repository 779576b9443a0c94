// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"fmt"
	"os"
	"slices"
)

// Secrets holds the bot token and the telegram user names allowed to run
// commands and receive notifications.
type Secrets struct {
	BotToken string `json:"token"`

	OwnerID string `json:"owner"`

	AdminID string `json:"admin"`

	OtherIDs []string `json:"others"`
}

func (v *Secrets) Check() error {
	if len(v.BotToken) == 0 {
		return fmt.Errorf("telegram bot token cannot be empty: %w", os.ErrInvalid)
	}
	if len(v.OwnerID) == 0 {
		return fmt.Errorf("telegram owner id cannot be empty: %w", os.ErrInvalid)
	}
	users := v.Users()
	for i, u := range users {
		if len(u) == 0 {
			return fmt.Errorf("empty telegram user id at %d: %w", i, os.ErrInvalid)
		}
		if slices.Index(users, u) != i {
			return fmt.Errorf("telegram user id %q is repeated: %w", u, os.ErrInvalid)
		}
	}
	return nil
}

// Users returns all user ids, owner first.
func (v *Secrets) Users() []string {
	users := []string{v.OwnerID}
	if len(v.AdminID) != 0 {
		users = append(users, v.AdminID)
	}
	return append(users, v.OtherIDs...)
}

// IsValidUser returns true if the user is allowed to send commands.
func (v *Secrets) IsValidUser(user string) bool {
	return len(user) != 0 && slices.Contains(v.Users(), user)
}

func (v *Secrets) Clone() *Secrets {
	c := *v
	c.OtherIDs = slices.Clone(v.OtherIDs)
	return &c
}
