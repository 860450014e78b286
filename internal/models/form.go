package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidRating indicates the rating field could not be read as a number.
var ErrInvalidRating = errors.New("invalid rating")

// MaxRating is the top of the rating scale.
const MaxRating = 5.0

// FormData holds the raw field values of the create/edit form. Ingredients are
// newline separated and tags comma separated, exactly as typed.
type FormData struct {
	Title       string
	Rating      string
	Ingredients string
	Tags        string
	Steps       string
}

// ParseDraft coerces raw form values into a Draft. Images are filled in
// later by the caller once they have been encoded.
func ParseDraft(f FormData) (Draft, error) {
	rating, err := ParseRating(f.Rating)
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		Title:       strings.TrimSpace(f.Title),
		Ingredients: SplitLines(f.Ingredients),
		Steps:       f.Steps,
		Tags:        SplitTags(f.Tags),
		Rating:      rating,
		Images:      []string{},
	}, nil
}

// ParseRating converts the rating field. Empty input means unrated (0).
// Values outside 0..5 are clamped; anything non-numeric is rejected.
func ParseRating(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return ClampRating(v), nil
}

// ClampRating limits v to the 0..5 scale.
func ClampRating(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > MaxRating:
		return MaxRating
	}
	return v
}

// SplitLines splits newline separated text into entries, dropping blank lines.
func SplitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// SplitTags splits comma separated text into trimmed, non-empty tags.
func SplitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTags is the inverse of SplitTags, used to prefill an edit form.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// JoinLines is the inverse of SplitLines, used to prefill an edit form.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
