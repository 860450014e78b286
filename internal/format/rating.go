// Package format renders recipe values for display.
package format

import (
	"fmt"
	"math"
	"strings"
)

const (
	fullStar  = "★"
	emptyStar = "☆"
	maxStars  = 5
)

// Unrated is the placeholder shown when a recipe has no rating.
const Unrated = "unrated"

// Rating renders v as five stars plus the value to one decimal, e.g.
// 3.7 -> "★★★☆☆ (3.7 / 5.0)". Zero, negative and NaN ratings render as "".
func Rating(v float64) string {
	if v <= 0 || math.IsNaN(v) {
		return ""
	}
	v = math.Min(v, maxStars)
	rounded := math.Round(v*10) / 10
	full := int(math.Floor(rounded))

	return fmt.Sprintf("%s%s (%.1f / 5.0)",
		strings.Repeat(fullStar, full),
		strings.Repeat(emptyStar, maxStars-full),
		rounded,
	)
}

// RatingOr is Rating with a placeholder for the empty case.
func RatingOr(v float64, placeholder string) string {
	if s := Rating(v); s != "" {
		return s
	}
	return placeholder
}
