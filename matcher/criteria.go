// Copyright (c) 2025 BVK Chaitanya

package matcher

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/bvk/vinbot/inventory"
	"github.com/shopspring/decimal"
)

const DefaultVariant = "Standard Range"

// variantTags lists the trim name tags that identify a variant family.
var variantTags = map[string][]string{
	"standard range": {"Standard Range", "SR", "RWD"},
	"long range":     {"Long Range", "LR", "AWD"},
	"performance":    {"Performance"},
}

// Criteria holds the buyer's vehicle preferences for one run.
type Criteria struct {
	// Variant names the trim family, e.g. "Standard Range".
	Variant string

	// MaxPrice is an inclusive price ceiling.
	MaxPrice decimal.Decimal

	// Colors is the color preference in priority order; index zero is the
	// most preferred color.
	Colors []inventory.Color

	// SeatColorRule enables deriving the interior color from the exterior
	// color.
	SeatColorRule bool

	DeliveryZip string
}

func (c *Criteria) Check() error {
	if !c.MaxPrice.IsPositive() {
		return fmt.Errorf("max price must be positive: %w", os.ErrInvalid)
	}
	if len(c.Colors) == 0 {
		return fmt.Errorf("color preference list cannot be empty: %w", os.ErrInvalid)
	}
	for i, color := range c.Colors {
		canonical, err := inventory.ParseColor(string(color))
		if err != nil {
			return err
		}
		// ColorIndex compares canonical names only.
		if canonical != color {
			return fmt.Errorf("color %q is not in the canonical form %q: %w", color, canonical, os.ErrInvalid)
		}
		if slices.Index(c.Colors, color) != i {
			return fmt.Errorf("color %q is repeated in the preference list: %w", color, os.ErrInvalid)
		}
	}
	return nil
}

func (c *Criteria) variant() string {
	if len(strings.TrimSpace(c.Variant)) == 0 {
		return DefaultVariant
	}
	return c.Variant
}

// MatchesVariant returns true if the trim name belongs to the configured
// variant family. Multi-word tags match as case-insensitive substrings and
// short tags must match a whole word.
func (c *Criteria) MatchesVariant(trim string) bool {
	variant := c.variant()
	tags, ok := variantTags[strings.ToLower(variant)]
	if !ok {
		tags = []string{variant}
	}
	lower := strings.ToLower(trim)
	words := strings.FieldsFunc(trim, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tag := range tags {
		if strings.ContainsRune(tag, ' ') {
			if strings.Contains(lower, strings.ToLower(tag)) {
				return true
			}
			continue
		}
		for _, w := range words {
			if strings.EqualFold(w, tag) {
				return true
			}
		}
	}
	return false
}

// ColorIndex returns the preference position of a canonical color or -1 if
// the color is not preferred at all.
func (c *Criteria) ColorIndex(color inventory.Color) int {
	return slices.Index(c.Colors, color)
}

type Interior string

const (
	StandardInterior Interior = "standard"
	WhiteInterior    Interior = "white"
)

// SeatColor derives the interior color for an exterior color. With the rule
// enabled red cars get the standard interior and every other color gets the
// white interior; without the rule the standard interior is used.
func (c *Criteria) SeatColor(color inventory.Color) Interior {
	if !c.SeatColorRule {
		return StandardInterior
	}
	if color == inventory.Red {
		return StandardInterior
	}
	return WhiteInterior
}
