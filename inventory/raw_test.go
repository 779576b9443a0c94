// Copyright (c) 2025 BVK Chaitanya

package inventory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleResponse = `{
  "total_matches_found": 3,
  "results": [
    {
      "VIN": "LRWYGCEK1PC000001",
      "Model": "my",
      "TrimName": "Model Y Standard Range RWD",
      "PAINT": {"Code": "red"},
      "INTERIOR": {"Code": "PREMIUM_BLACK"},
      "Price": 1900000,
      "Year": 2024,
      "MetroName": "Istanbul",
      "TotalRange": "455",
      "InventoryStatus": "Available",
      "ETA": "2024-11-20",
      "OptionCodeList": "APBS,IPB8,MDLY"
    },
    {
      "VIN": "LRWYGCEK1PC000002",
      "Model": "my",
      "TrimName": "Model Y Long Range AWD",
      "PAINT": ["WHITE"],
      "Price": "2350000.50",
      "Year": 2024,
      "InventoryStatus": "InTransit",
      "OptionCodeList": ["APBS", "MDLY"]
    },
    {
      "Model": "my",
      "TrimName": "missing vin is skipped"
    }
  ]
}`

func TestParseResponse(t *testing.T) {
	listings, err := ParseResponse([]byte(sampleResponse))
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 2 {
		t.Fatalf("want 2 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.VIN != "LRWYGCEK1PC000001" {
		t.Fatalf("want first vin LRWYGCEK1PC000001, got %s", first.VIN)
	}
	if !first.Price.Equal(decimal.NewFromInt(1900000)) {
		t.Fatalf("want price 1900000, got %s", first.Price)
	}
	if first.Range != 455 {
		t.Fatalf("want range 455, got %d", first.Range)
	}
	if first.Availability != Available {
		t.Fatalf("want Available, got %s", first.Availability)
	}
	if first.DeliveryETA == nil || first.DeliveryETA.Day() != 20 {
		t.Fatalf("want parsed eta, got %v", first.DeliveryETA)
	}
	if len(first.OptionCodes) != 3 || first.OptionCodes[1] != "IPB8" {
		t.Fatalf("want 3 option codes, got %v", first.OptionCodes)
	}
	if c, ok := first.Color(); !ok || c != Red {
		t.Fatalf("want red, got %q (%t)", c, ok)
	}

	second := listings[1]
	if second.PaintCode != "WHITE" {
		t.Fatalf("want paint code from array form, got %q", second.PaintCode)
	}
	if !second.Price.Equal(decimal.RequireFromString("2350000.50")) {
		t.Fatalf("want quoted price to parse, got %s", second.Price)
	}
	if second.Availability != InTransit {
		t.Fatalf("want InTransit, got %s", second.Availability)
	}
	if second.DeliveryETA != nil {
		t.Fatalf("want nil eta, got %v", second.DeliveryETA)
	}
}

func TestParseResponseExactResults(t *testing.T) {
	data := `{"results": {"exact": [{"VIN": "A1", "InventoryStatus": "Sold"}], "approximate": [{"VIN": "B1"}]}}`
	listings, err := ParseResponse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 1 || listings[0].VIN != "A1" {
		t.Fatalf("want only the exact match, got %v", listings)
	}
	if listings[0].Availability != Unavailable {
		t.Fatalf("want Unavailable, got %s", listings[0].Availability)
	}
}

func TestParseResponseMalformed(t *testing.T) {
	for _, data := range []string{`{"results": [`, `{"results": 42}`, `not json`} {
		_, err := ParseResponse([]byte(data))
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("%q: want ParseError, got %v", data, err)
		}
	}

	listings, err := ParseResponse([]byte(`{"total_matches_found": 0}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 0 {
		t.Fatalf("want no listings, got %d", len(listings))
	}
}

func TestCanonicalColor(t *testing.T) {
	if c, ok := CanonicalColor(" Pearl "); !ok || c != White {
		t.Fatalf("want pearl to map to white, got %q", c)
	}
	if c, ok := CanonicalColor("SOLID"); !ok || c != Black {
		t.Fatalf("want solid to map to black, got %q", c)
	}
	if c, ok := CanonicalColor("PPSB"); !ok || c != Blue {
		t.Fatalf("want PPSB to map to blue, got %q", c)
	}
	if _, ok := CanonicalColor("MAGENTA"); ok {
		t.Fatalf("want magenta to be unrecognized")
	}
	if _, err := ParseColor("purple"); err == nil {
		t.Fatalf("want error for unknown color name")
	}
}
