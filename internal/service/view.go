package service

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/raphaelgruber/recipebox/internal/models"
)

// DefaultLocale is the collation language used for title sorting.
const DefaultLocale = "ja"

// SortMode selects the ordering of a view.
type SortMode string

// Sort modes. SortNone keeps collection order.
const (
	SortNone        SortMode = ""
	SortRecommended SortMode = "recommended"
	SortNewest      SortMode = "newest"
	SortTitle       SortMode = "title"
)

// SortModes lists the selectable modes in display order.
var SortModes = []SortMode{SortRecommended, SortNewest, SortTitle}

// ParseSortMode maps user input to a SortMode. Unknown values yield SortNone.
func ParseSortMode(s string) SortMode {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SortRecommended, SortNewest, SortTitle:
		return m
	}
	return SortNone
}

// Next returns the mode after m in SortModes, wrapping around.
func (m SortMode) Next() SortMode {
	for i, mode := range SortModes {
		if mode == m {
			return SortModes[(i+1)%len(SortModes)]
		}
	}
	return SortModes[0]
}

func (m SortMode) String() string {
	if m == SortNone {
		return "none"
	}
	return string(m)
}

// NewCollator returns a collator for locale, falling back to DefaultLocale
// when the tag cannot be parsed.
func NewCollator(locale string) *collate.Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Make(DefaultLocale)
	}
	return collate.New(tag)
}

// View filters and sorts recipes without modifying them. Every item carries
// the index of its record in recipes, resolved by matching created. A nil
// collator uses DefaultLocale.
func View(recipes []models.Recipe, term string, mode SortMode, coll *collate.Collator) []models.ViewItem {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(term))

	items := make([]models.ViewItem, 0, len(recipes))
	for _, r := range recipes {
		if needle != "" && !strings.Contains(fold.String(haystack(r)), needle) {
			continue
		}
		items = append(items, models.ViewItem{Recipe: r.Clone()})
	}

	switch mode {
	case SortRecommended:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Recipe.Rating > items[j].Recipe.Rating
		})
	case SortNewest:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Recipe.Created > items[j].Recipe.Created
		})
	case SortTitle:
		if coll == nil {
			coll = NewCollator(DefaultLocale)
		}
		sort.SliceStable(items, func(i, j int) bool {
			return coll.CompareString(items[i].Recipe.Title, items[j].Recipe.Title) < 0
		})
	}

	for i := range items {
		items[i].Index = indexOf(recipes, items[i].Recipe.Created)
	}
	return items
}

// haystack is the text a search term is matched against.
func haystack(r models.Recipe) string {
	return strings.Join([]string{
		r.Title,
		r.Steps,
		strings.Join(r.Ingredients, " "),
		strings.Join(r.Tags, " "),
	}, " ")
}
