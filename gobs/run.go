// Copyright (c) 2025 BVK Chaitanya

package gobs

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/shopspring/decimal"
)

type CriteriaRecord struct {
	Variant       string
	MaxPrice      decimal.Decimal
	Colors        []string
	SeatColorRule bool
	DeliveryZip   string
}

type ListingRecord struct {
	VIN          string
	Model        string
	Trim         string
	PaintCode    string
	InteriorCode string
	Price        decimal.Decimal
	Year         int
	Location     string
	Availability string

	// Color is the canonical exterior color and Interior is the derived seat
	// color.
	Color    string
	Interior string
}

type OrderRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Result    string
	Step      string
	Field     string
	Reason    string
	Confirmed bool
}

// RunRecord is the journal entry for one bot run. It is saved when the run
// starts and updated when it finishes.
type RunRecord struct {
	RunID string

	StartedAt  time.Time
	FinishedAt time.Time

	// Outcome is empty while the run is in progress.
	Outcome string

	Attempts       int
	FailedAttempts int
	GatedAttempts  int

	Error string

	Criteria CriteriaRecord

	Listing *ListingRecord
	Order   *OrderRecord
}

func (v *RunRecord) Running() bool {
	return v.FinishedAt.IsZero()
}

func (v *RunRecord) Clone() *RunRecord {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		panic(err)
	}
	x := new(RunRecord)
	if err := gob.NewDecoder(&buf).Decode(x); err != nil {
		panic(err)
	}
	return x
}
