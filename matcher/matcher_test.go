// Copyright (c) 2025 BVK Chaitanya

package matcher

import (
	"errors"
	"os"
	"testing"

	"github.com/bvk/vinbot/inventory"
	"github.com/shopspring/decimal"
)

func newListing(vin, trim, paint string, price int64, status inventory.Availability) *inventory.Listing {
	return &inventory.Listing{
		VIN:          vin,
		Trim:         trim,
		PaintCode:    paint,
		Price:        decimal.NewFromInt(price),
		Availability: status,
	}
}

func TestSelectPriceCeilingBeatsColorRank(t *testing.T) {
	c := &Criteria{
		MaxPrice: decimal.NewFromInt(2_000_000),
		Colors:   []inventory.Color{inventory.Red, inventory.Standard},
	}
	listings := []*inventory.Listing{
		newListing("RED", "Model Y Standard Range", "red", 2_100_000, inventory.Available),
		newListing("STD", "Model Y Standard Range", "standard", 1_900_000, inventory.Available),
	}
	v := Select(listings, c)
	if v == nil {
		t.Fatalf("want a match, got nil")
	}
	if v.VIN != "STD" {
		t.Fatalf("want STD, got %s", v.VIN)
	}
}

func TestSelectColorPriority(t *testing.T) {
	c := &Criteria{
		MaxPrice: decimal.NewFromInt(3_000_000),
		Colors:   []inventory.Color{inventory.White, inventory.Black},
	}
	listings := []*inventory.Listing{
		newListing("BLACK-CHEAP", "Model Y RWD", "black", 1_500_000, inventory.Available),
		newListing("WHITE-PRICEY", "Model Y RWD", "pearl", 1_900_000, inventory.InTransit),
		newListing("WHITE-CHEAP", "Model Y RWD", "white", 1_800_000, inventory.Available),
	}
	if v := Select(listings, c); v == nil || v.VIN != "WHITE-CHEAP" {
		t.Fatalf("want WHITE-CHEAP, got %v", v)
	}

	cands := Rank(listings, c)
	if len(cands) != 3 {
		t.Fatalf("want 3 candidates, got %d", len(cands))
	}
	if cands[2].Listing.VIN != "BLACK-CHEAP" {
		t.Fatalf("want black listing last, got %s", cands[2].Listing.VIN)
	}
}

func TestSelectExclusions(t *testing.T) {
	c := &Criteria{
		MaxPrice: decimal.NewFromInt(2_000_000),
		Colors:   []inventory.Color{inventory.Red, inventory.Grey},
	}
	listings := []*inventory.Listing{
		newListing("UNKNOWN-COLOR", "Model Y Standard Range", "MAGENTA", 1_000_000, inventory.Available),
		newListing("UNPREFERRED", "Model Y Standard Range", "blue", 1_000_000, inventory.Available),
		newListing("SOLD", "Model Y Standard Range", "red", 1_000_000, inventory.Unavailable),
		newListing("UNKNOWN-STATUS", "Model Y Standard Range", "red", 1_000_000, inventory.Unknown),
		newListing("LONG-RANGE", "Model Y Long Range AWD", "red", 1_000_000, inventory.Available),
	}
	if v := Select(listings, c); v != nil {
		t.Fatalf("want no match, got %s", v.VIN)
	}

	listings = append(listings, newListing("OK", "Model Y Standard Range", "PN01", 2_000_000, inventory.InTransit))
	if v := Select(listings, c); v == nil || v.VIN != "OK" {
		t.Fatalf("want OK listing at the inclusive ceiling, got %v", v)
	}
}

func TestSelectEmpty(t *testing.T) {
	c := &Criteria{MaxPrice: decimal.NewFromInt(1), Colors: []inventory.Color{inventory.Red}}
	if v := Select(nil, c); v != nil {
		t.Fatalf("want nil, got %v", v)
	}
}

func TestMatchesVariant(t *testing.T) {
	c := new(Criteria)
	for _, trim := range []string{"Model Y Standard Range", "Model Y RWD", "MY SR+", "model y standard range"} {
		if !c.MatchesVariant(trim) {
			t.Fatalf("want %q to match the standard range family", trim)
		}
	}
	for _, trim := range []string{"Model Y Long Range AWD", "Model Y Performance", "SRX Edition"} {
		if c.MatchesVariant(trim) {
			t.Fatalf("want %q not to match the standard range family", trim)
		}
	}

	lr := &Criteria{Variant: "Long Range"}
	if !lr.MatchesVariant("Model Y Long Range AWD") {
		t.Fatalf("want long range trim to match")
	}
}

func TestSeatColor(t *testing.T) {
	c := &Criteria{SeatColorRule: true}
	if v := c.SeatColor(inventory.Red); v != StandardInterior {
		t.Fatalf("want standard interior for red, got %s", v)
	}
	if v := c.SeatColor(inventory.Black); v != WhiteInterior {
		t.Fatalf("want white interior for black, got %s", v)
	}
	c.SeatColorRule = false
	if v := c.SeatColor(inventory.Black); v != StandardInterior {
		t.Fatalf("want standard interior without the rule, got %s", v)
	}
}

func TestCriteriaCheck(t *testing.T) {
	c := &Criteria{MaxPrice: decimal.NewFromInt(100), Colors: []inventory.Color{inventory.Red, inventory.Red}}
	if err := c.Check(); err == nil {
		t.Fatalf("want error for repeated colors")
	}
	c.Colors = []inventory.Color{inventory.Red}
	c.MaxPrice = decimal.Zero
	if err := c.Check(); err == nil {
		t.Fatalf("want error for zero max price")
	}
	c.MaxPrice = decimal.NewFromInt(100)
	if err := c.Check(); err != nil {
		t.Fatal(err)
	}

	c.Colors = []inventory.Color{"Red"}
	if err := c.Check(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid for a non-canonical color, got %v", err)
	}
	c.Colors = []inventory.Color{"Red", inventory.Red}
	if err := c.Check(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid for case-variant duplicates, got %v", err)
	}
}
