package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/recipebox/internal/models"
)

func sampleCollection() []models.Recipe {
	return []models.Recipe{
		{Title: "Tomato Soup", Ingredients: []string{"tomato", "onion"}, Steps: "Simmer", Tags: []string{"soup"}, Rating: 4, Created: 300},
		{Title: "カレーライス", Ingredients: []string{"ルー", "玉ねぎ"}, Steps: "煮込む", Tags: []string{"和食"}, Rating: 4.5, Created: 200},
		{Title: "apple pie", Ingredients: []string{"Apple", "flour"}, Steps: "Bake", Tags: []string{"Dessert"}, Rating: 4, Created: 500},
		{Title: "Bread", Ingredients: []string{"flour"}, Steps: "Knead", Tags: nil, Rating: 0, Created: 100},
	}
}

func titles(items []models.ViewItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Recipe.Title
	}
	return out
}

func TestViewFilter(t *testing.T) {
	recipes := sampleCollection()

	tests := []struct {
		name string
		term string
		want []string
	}{
		{name: "empty term keeps all", term: "", want: []string{"Tomato Soup", "カレーライス", "apple pie", "Bread"}},
		{name: "whitespace term keeps all", term: "   ", want: []string{"Tomato Soup", "カレーライス", "apple pie", "Bread"}},
		{name: "title case-insensitive", term: "TOMATO", want: []string{"Tomato Soup"}},
		{name: "ingredient", term: "flour", want: []string{"apple pie", "Bread"}},
		{name: "steps", term: "knead", want: []string{"Bread"}},
		{name: "tag", term: "dessert", want: []string{"apple pie"}},
		{name: "japanese", term: "玉ねぎ", want: []string{"カレーライス"}},
		{name: "trimmed", term: "  soup ", want: []string{"Tomato Soup"}},
		{name: "across fields", term: "pie apple", want: []string{}},
		{name: "absent term", term: "zucchini", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := View(recipes, tt.term, SortNone, nil)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestViewAbsentTermIsEmptyForAllModes(t *testing.T) {
	for _, mode := range append(SortModes, SortNone) {
		assert.Empty(t, View(sampleCollection(), "no-such-thing", mode, nil), mode.String())
	}
}

func TestViewSortNewest(t *testing.T) {
	items := View(sampleCollection(), "", SortNewest, nil)
	require.Len(t, items, 4)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Recipe.Created, items[i].Recipe.Created)
	}
}

func TestViewSortRecommendedIsStable(t *testing.T) {
	items := View(sampleCollection(), "", SortRecommended, nil)
	require.Len(t, items, 4)
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Recipe.Rating, items[i].Recipe.Rating)
	}
	// Tomato Soup and apple pie tie at 4 and keep collection order.
	assert.Equal(t, []string{"カレーライス", "Tomato Soup", "apple pie", "Bread"}, titles(items))
}

func TestViewSortTitle(t *testing.T) {
	items := View(sampleCollection(), "", SortTitle, NewCollator("en"))
	assert.Equal(t, []string{"apple pie", "Bread", "Tomato Soup", "カレーライス"}, titles(items))
}

func TestViewUnknownModeKeepsOrder(t *testing.T) {
	items := View(sampleCollection(), "", ParseSortMode("sideways"), nil)
	assert.Equal(t, []string{"Tomato Soup", "カレーライス", "apple pie", "Bread"}, titles(items))
}

func TestViewBackReferences(t *testing.T) {
	recipes := sampleCollection()
	for _, mode := range append(SortModes, SortNone) {
		for _, item := range View(recipes, "", mode, nil) {
			require.GreaterOrEqual(t, item.Index, 0)
			assert.Equal(t, item.Recipe.Created, recipes[item.Index].Created, mode.String())
		}
	}
}

func TestViewBackReferenceWithDuplicateTitleAndRating(t *testing.T) {
	recipes := []models.Recipe{
		{Title: "Same", Rating: 3, Created: 10},
		{Title: "Same", Rating: 3, Created: 20},
		{Title: "Same", Rating: 3, Created: 30},
	}

	items := View(recipes, "same", SortNewest, nil)
	require.Len(t, items, 3)
	assert.Equal(t, []int{2, 1, 0}, []int{items[0].Index, items[1].Index, items[2].Index})
}

func TestViewDoesNotAliasCollection(t *testing.T) {
	recipes := sampleCollection()
	items := View(recipes, "", SortNone, nil)
	items[0].Recipe.Ingredients[0] = "changed"
	assert.Equal(t, "tomato", recipes[0].Ingredients[0])
}

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		in   string
		want SortMode
	}{
		{"recommended", SortRecommended},
		{"Newest", SortNewest},
		{" title ", SortTitle},
		{"", SortNone},
		{"rating", SortNone},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSortMode(tt.in))
		})
	}
}

func TestSortModeNext(t *testing.T) {
	assert.Equal(t, SortNewest, SortRecommended.Next())
	assert.Equal(t, SortTitle, SortNewest.Next())
	assert.Equal(t, SortRecommended, SortTitle.Next())
	assert.Equal(t, SortRecommended, SortNone.Next())
}
