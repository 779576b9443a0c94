// Copyright (c) 2025 BVK Chaitanya

// Package matcher filters and ranks inventory listings against buyer
// criteria. Functions in this package are pure and never perform I/O.
package matcher

import (
	"cmp"
	"slices"

	"github.com/bvk/vinbot/inventory"
)

// Candidate is an eligible listing with its ranking key.
type Candidate struct {
	Listing    *inventory.Listing
	Color      inventory.Color
	ColorIndex int
}

// Rank returns all listings eligible under the criteria, most preferred
// first. Listings are ordered by color preference, then by price and finally
// by VIN so that the order never depends on the input order.
func Rank(listings []*inventory.Listing, c *Criteria) []*Candidate {
	var cands []*Candidate
	for _, l := range listings {
		if l == nil {
			continue
		}
		if !c.MatchesVariant(l.Trim) {
			continue
		}
		if l.Price.GreaterThan(c.MaxPrice) {
			continue
		}
		if !l.Availability.Eligible() {
			continue
		}
		color, ok := l.Color()
		if !ok {
			continue
		}
		index := c.ColorIndex(color)
		if index < 0 {
			continue
		}
		cands = append(cands, &Candidate{Listing: l, Color: color, ColorIndex: index})
	}

	slices.SortFunc(cands, func(a, b *Candidate) int {
		if v := cmp.Compare(a.ColorIndex, b.ColorIndex); v != 0 {
			return v
		}
		if v := a.Listing.Price.Cmp(b.Listing.Price); v != 0 {
			return v
		}
		return cmp.Compare(a.Listing.VIN, b.Listing.VIN)
	})
	return cands
}

// Select returns the most preferred eligible listing or nil.
func Select(listings []*inventory.Listing, c *Criteria) *inventory.Listing {
	cands := Rank(listings, c)
	if len(cands) == 0 {
		return nil
	}
	return cands[0].Listing
}
