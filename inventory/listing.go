// Copyright (c) 2025 BVK Chaitanya

package inventory

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Availability int

const (
	Unknown Availability = iota
	Available
	InTransit
	Unavailable
)

func (v Availability) String() string {
	switch v {
	case Available:
		return "Available"
	case InTransit:
		return "InTransit"
	case Unavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Eligible returns true if a listing with this status can be ordered.
func (v Availability) Eligible() bool {
	return v == Available || v == InTransit
}

// ParseAvailability maps an inventory status string to the availability
// enum. Unrecognized strings map to Unknown.
func ParseAvailability(s string) Availability {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available":
		return Available
	case "intransit", "in_transit", "in transit":
		return InTransit
	case "unavailable", "sold", "reserved":
		return Unavailable
	default:
		return Unknown
	}
}

// Listing is an immutable vehicle record returned by an inventory query.
type Listing struct {
	VIN   string
	Model string
	Trim  string

	PaintCode    string
	InteriorCode string

	Price decimal.Decimal
	Year  int

	Location string
	Range    int

	Availability Availability

	// DeliveryETA is nil when the source did not publish a parseable date;
	// RawETA keeps whatever the source sent.
	DeliveryETA *time.Time
	RawETA      string

	OptionCodes []string
}

// Color returns the canonical color for the listing's paint code.
func (v *Listing) Color() (Color, bool) {
	return CanonicalColor(v.PaintCode)
}

func (v *Listing) String() string {
	return fmt.Sprintf("VIN=%s trim=%q paint=%s price=%s status=%s", v.VIN, v.Trim, v.PaintCode, v.Price.StringFixed(0), v.Availability)
}

func (v *Listing) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("vin", v.VIN),
		slog.String("trim", v.Trim),
		slog.String("paint", v.PaintCode),
		slog.String("price", v.Price.StringFixed(0)),
		slog.String("status", v.Availability.String()),
		slog.String("location", v.Location),
	)
}

var etaLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006",
}

func parseETA(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return nil
	}
	for _, layout := range etaLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
