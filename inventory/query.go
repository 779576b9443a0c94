// Copyright (c) 2025 BVK Chaitanya

package inventory

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Query holds the filter parameters for one inventory request.
type Query struct {
	Model       string
	Condition   string
	Market      string
	Language    string
	SuperRegion string

	// Zip is the delivery postal code used by the source to compute
	// delivery locations.
	Zip string

	// Count caps the number of results returned.
	Count  int
	Offset int

	ArrangeBy string
	Order     string
}

// DefaultQuery returns the filter parameters for new Model Y inventory in the
// Turkish market sorted by ascending price.
func DefaultQuery(zip string) *Query {
	return &Query{
		Model:       "my",
		Condition:   "new",
		Market:      "TR",
		Language:    "tr",
		SuperRegion: "europe",
		Zip:         zip,
		Count:       50,
		ArrangeBy:   "Price",
		Order:       "asc",
	}
}

func (q *Query) Check() error {
	if len(q.Model) == 0 {
		return fmt.Errorf("model cannot be empty: %w", os.ErrInvalid)
	}
	if len(q.Market) == 0 {
		return fmt.Errorf("market cannot be empty: %w", os.ErrInvalid)
	}
	if q.Count <= 0 {
		return fmt.Errorf("result count must be positive: %w", os.ErrInvalid)
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset cannot be negative: %w", os.ErrInvalid)
	}
	if q.Order != "asc" && q.Order != "desc" {
		return fmt.Errorf("sort order must be asc or desc: %w", os.ErrInvalid)
	}
	return nil
}

// values encodes the query the way the inventory api expects it: filters as a
// json document in the query parameter and paging as plain parameters.
func (q *Query) values() (url.Values, error) {
	type filter struct {
		Model       string         `json:"model"`
		Condition   string         `json:"condition"`
		Options     map[string]any `json:"options"`
		ArrangeBy   string         `json:"arrangeby"`
		Order       string         `json:"order"`
		Market      string         `json:"market"`
		Language    string         `json:"language"`
		SuperRegion string         `json:"super_region"`
		Zip         string         `json:"zip"`
		Range       int            `json:"range"`
	}
	f := &filter{
		Model:       q.Model,
		Condition:   q.Condition,
		Options:     map[string]any{},
		ArrangeBy:   q.ArrangeBy,
		Order:       q.Order,
		Market:      q.Market,
		Language:    q.Language,
		SuperRegion: q.SuperRegion,
		Zip:         q.Zip,
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("could not json-encode query filter: %w", err)
	}
	values := make(url.Values)
	values.Set("query", string(data))
	values.Set("offset", strconv.Itoa(q.Offset))
	values.Set("count", strconv.Itoa(q.Count))
	values.Set("outsideOffset", "0")
	values.Set("outsideSearch", "false")
	return values, nil
}
