// Copyright (c) 2025 BVK Chaitanya

package inventory

import (
	"fmt"
	"os"
	"strings"
)

// Color is a normalized exterior color category used for preference ranking.
type Color string

const (
	Red      Color = "red"
	Standard Color = "standard"
	White    Color = "white"
	Black    Color = "black"
	Blue     Color = "blue"
	Grey     Color = "grey"
)

var Colors = []Color{Red, Standard, White, Black, Blue, Grey}

// colorMap maps lower-cased source paint codes and color names to canonical
// colors. Paint codes not in this table are unrecognized.
var colorMap = map[string]Color{
	"red":      Red,
	"standard": Standard,
	"white":    White,
	"black":    Black,
	"blue":     Blue,
	"grey":     Grey,
	"gray":     Grey,

	"pearl": White,
	"solid": Black,

	"ppsw": White, // pearl white multi-coat
	"pw01": White,
	"pbsb": Black, // solid black
	"pmbl": Black,
	"ppsb": Blue, // deep blue metallic
	"pmng": Grey, // midnight silver
	"pn01": Grey, // stealth grey
	"ppmr": Red,  // red multi-coat
	"pr01": Red,  // ultra red
}

// CanonicalColor maps a source paint code or color name to a canonical color.
func CanonicalColor(code string) (Color, bool) {
	c, ok := colorMap[strings.ToLower(strings.TrimSpace(code))]
	return c, ok
}

// ParseColor parses a user supplied canonical color name.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Colors {
		if v == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("unrecognized color %q: %w", s, os.ErrInvalid)
}
