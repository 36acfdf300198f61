// Package pricing maps (size, format, subsection) to a unit price using
// fixed lookup tables. Resolution is pure: the same inputs always give the
// same price, and an absent table cell means the format is unavailable at
// that size, never that a fallback price applies.
package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Format is the physical presentation of an artwork.
type Format string

const (
	FormatRolled Format = "rolled"
	FormatCanvas Format = "canvas"
	FormatFrame  Format = "frame"
)

// Subsection is the bundling variant, selecting an independent price table.
type Subsection string

const (
	SubsectionBasic    Subsection = "basic"
	SubsectionTwoSet   Subsection = "2set"
	SubsectionThreeSet Subsection = "3set"
)

var (
	ErrUnavailable   = errors.New("price unavailable for this size and format")
	ErrUnknownFormat = errors.New("unknown format")
)

// row holds the three per-format prices for one size. A nil entry means the
// format is not offered at that size.
type row struct {
	rolled *int64
	canvas *int64
	frame  *int64
}

func p(v int64) *int64 { return &v }

var basicTable = map[string]row{
	"12X18": {rolled: p(499), canvas: p(999), frame: p(1299)},
	"18X24": {rolled: p(699), canvas: p(1299), frame: p(1799)},
	"24X36": {rolled: p(999), canvas: p(1899), frame: p(2499)},
	"30X40": {rolled: p(1299), canvas: p(2499)},
	"36X48": {rolled: p(1699)},
}

var twoSetTable = map[string]row{
	"12X18": {rolled: p(899), canvas: p(1799), frame: p(2399)},
	"18X24": {rolled: p(1299), canvas: p(2399), frame: p(3299)},
	"24X36": {rolled: p(1899), canvas: p(3499), frame: p(4699)},
	"30X40": {rolled: p(2399), canvas: p(4599)},
}

var threeSetTable = map[string]row{
	"12X18": {rolled: p(1299), canvas: p(2599), frame: p(3499)},
	"18X24": {rolled: p(1899), canvas: p(3499), frame: p(4799)},
	"24X36": {rolled: p(2799), canvas: p(5199)},
}

// NormalizeSize unifies the free-form size strings the storefront sends, so
// "18×24", "18 x 24" and "18X24" all resolve identically.
func NormalizeSize(size string) string {
	s := strings.TrimSpace(size)
	s = strings.ReplaceAll(s, "×", "X")
	s = strings.ReplaceAll(s, " ", "")
	return strings.ToUpper(s)
}

// ParseFormat validates a client-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatRolled:
		return FormatRolled, nil
	case FormatCanvas:
		return FormatCanvas, nil
	case FormatFrame:
		return FormatFrame, nil
	default:
		return "", ErrUnknownFormat
	}
}

// ParseSubsection maps a product's subsection to its price table. Unknown
// values fall back to Basic.
func ParseSubsection(s string) Subsection {
	switch Subsection(strings.ToLower(strings.TrimSpace(s))) {
	case SubsectionTwoSet:
		return SubsectionTwoSet
	case SubsectionThreeSet:
		return SubsectionThreeSet
	default:
		return SubsectionBasic
	}
}

func table(sub Subsection) map[string]row {
	switch sub {
	case SubsectionTwoSet:
		return twoSetTable
	case SubsectionThreeSet:
		return threeSetTable
	default:
		return basicTable
	}
}

// Resolve returns the unit price for a size/format/subsection combination,
// or ErrUnavailable when the table has no row for the size or the row has no
// entry for the format.
func Resolve(size string, format Format, sub Subsection) (decimal.Decimal, error) {
	r, ok := table(sub)[NormalizeSize(size)]
	if !ok {
		return decimal.Zero, ErrUnavailable
	}

	var cell *int64
	switch format {
	case FormatRolled:
		cell = r.rolled
	case FormatCanvas:
		cell = r.canvas
	case FormatFrame:
		cell = r.frame
	default:
		return decimal.Zero, ErrUnknownFormat
	}
	if cell == nil {
		return decimal.Zero, ErrUnavailable
	}
	return decimal.NewFromInt(*cell), nil
}

// Formats returns the available formats and their prices for a size, so the
// storefront can disable unavailable options instead of guessing a price.
func Formats(size string, sub Subsection) map[Format]decimal.Decimal {
	out := make(map[Format]decimal.Decimal)
	r, ok := table(sub)[NormalizeSize(size)]
	if !ok {
		return out
	}
	if r.rolled != nil {
		out[FormatRolled] = decimal.NewFromInt(*r.rolled)
	}
	if r.canvas != nil {
		out[FormatCanvas] = decimal.NewFromInt(*r.canvas)
	}
	if r.frame != nil {
		out[FormatFrame] = decimal.NewFromInt(*r.frame)
	}
	return out
}

// Sizes lists the sizes present in a subsection's table.
func Sizes(sub Subsection) []string {
	t := table(sub)
	out := make([]string, 0, len(t))
	for size := range t {
		out = append(out, size)
	}
	return out
}
