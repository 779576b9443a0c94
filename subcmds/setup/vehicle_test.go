// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bvk/vinbot/config"
)

func TestVehicleUpdate(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "config.json")
	existing := `{"buyer": {"first_name": "Gizem", "email": "gizem@example.com"}, "bot": {"max_attempts": 7}}`
	if err := os.WriteFile(fpath, []byte(existing), 0600); err != nil {
		t.Fatal(err)
	}

	c := new(Vehicle)
	_, fset, _ := c.Command()
	args := []string{"-max-price=1500000", "-colors=White, RED", "-delivery-zip=06660", "-sale-start=17:59"}
	if err := fset.Parse(args); err != nil {
		t.Fatal(err)
	}
	if _, err := c.update(fpath); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Parse(data, "json")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Buyer.FirstName != "Gizem" || cfg.Bot.MaxAttempts != 7 {
		t.Fatalf("want other fields kept, got %+v / %+v", cfg.Buyer, cfg.Bot)
	}
	if len(cfg.Vehicle.Colors) != 2 || cfg.Vehicle.Colors[0] != "white" || cfg.Vehicle.Colors[1] != "red" {
		t.Fatalf("want canonical colors [white red], got %v", cfg.Vehicle.Colors)
	}
	if cfg.Vehicle.MaxPrice.IntPart() != 1500000 || cfg.Vehicle.DeliveryZip != "06660" {
		t.Fatalf("unexpected vehicle %+v", cfg.Vehicle)
	}
	if s := cfg.Settings(); s.SaleStart == nil || s.SaleStart.String() != "17:59" {
		t.Fatalf("want sale start 17:59, got %v", s.SaleStart)
	}
}

func TestVehicleUpdateInvalid(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "config.json")

	c := new(Vehicle)
	if _, err := c.update(fpath); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid without edits, got %v", err)
	}

	_, fset, _ := c.Command()
	if err := fset.Parse([]string{"-max-price=100", "-delivery-zip=12"}); err != nil {
		t.Fatal(err)
	}
	var verr *config.ValidationError
	if _, err := c.update(fpath); !errors.As(err, &verr) {
		t.Fatalf("want validation error for a bad zip, got %v", err)
	}
	if _, err := os.Stat(fpath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want no config file written on error, got %v", err)
	}

	_, fset, _ = c.Command()
	if err := fset.Parse([]string{"-colors=red,purple"}); err == nil {
		t.Fatalf("want flag error for an unknown color")
	}
}
