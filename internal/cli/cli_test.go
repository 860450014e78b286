package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/recipebox/internal/db"
	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/parser"
	"github.com/raphaelgruber/recipebox/internal/service"
)

func newTestStore(t *testing.T) *service.RecipeStore {
	t.Helper()
	return service.NewRecipeStore(context.Background(), db.NewMemoryKV(), service.StoreOptions{
		Location: time.UTC,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestParseRecipeNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1", want: 0},
		{in: "12", want: 11},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRecipeNumber(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCardPlain(t *testing.T) {
	tests := []struct {
		name string
		item models.ViewItem
		want string
	}{
		{
			name: "rated with tags",
			item: models.ViewItem{Index: 2, Recipe: models.Recipe{
				Title:         "Oyakodon",
				Rating:        3.7,
				Tags:          []string{"rice", "chicken"},
				FormattedDate: "2024.03.09",
				CookedCount:   4,
			}},
			want: "#3 Oyakodon\n★★★☆☆ (3.7 / 5.0)\nrice, chicken\nAdded: 2024.03.09 · Cooked: 4 times",
		},
		{
			name: "unrated without date",
			item: models.ViewItem{Recipe: models.Recipe{Title: "Tea"}},
			want: "#1 Tea\nunrated\nAdded: unknown · Cooked: 0 times",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newCard(tt.item).Plain())
		})
	}
}

func TestLineConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: " yes ", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			c := newLineConfirmer(strings.NewReader(tt.input), &out)

			got, err := c.Confirm(`Delete "Curry"?`)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, `Delete "Curry"? [y/N]: `, out.String())
		})
	}
}

func TestFormFromRecipe(t *testing.T) {
	f := formFromRecipe(models.Recipe{
		Title:       "Katsu",
		Rating:      4.5,
		Ingredients: []string{"pork", "panko"},
		Tags:        []string{"fried", "dinner"},
		Steps:       "fry",
	})

	assert.Equal(t, models.FormData{
		Title:       "Katsu",
		Rating:      "4.5",
		Ingredients: "pork\npanko",
		Tags:        "fried, dinner",
		Steps:       "fry",
	}, f)

	draft, err := models.ParseDraft(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"pork", "panko"}, draft.Ingredients)
	assert.Equal(t, []string{"fried", "dinner"}, draft.Tags)

	assert.Empty(t, formFromRecipe(models.Recipe{Title: "x"}).Rating)
}

func TestSplitPaths(t *testing.T) {
	assert.Equal(t, []string{"a.jpg", "b c.png"}, splitPaths(" a.jpg, ,b c.png "))
	assert.Nil(t, splitPaths(""))
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	recipes := []models.Recipe{
		{
			Title:         "肉じゃが",
			Ingredients:   []string{"beef", "potato"},
			Steps:         "Simmer 20 minutes.",
			Tags:          []string{"和食"},
			Rating:        4.5,
			Images:        []string{"data:image/jpeg;base64,AAAA"},
			Created:       1710000000000,
			FormattedDate: "2024.03.09",
			CookedCount:   3,
		},
		{
			Title:       "Toast",
			Ingredients: []string{},
			Tags:        []string{},
			Images:      []string{},
			Created:     1700000000000,
		},
	}

	var steps []string
	n, err := exportRecipes(context.Background(), dir, recipes, func(name string) { steps = append(steps, name) })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, steps, 2)
	assert.FileExists(t, filepath.Join(dir, parser.ImagesFileName(parser.FileName(recipes[0]))))
	assert.NoFileExists(t, filepath.Join(dir, parser.ImagesFileName(parser.FileName(recipes[1]))))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("no heading here\n"), 0644))

	paths, err := collectRecipeFiles([]string{dir})
	require.NoError(t, err)
	require.Len(t, paths, 3)

	got, warnings, err := readRecipeFiles(context.Background(), paths, func(string) {})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "notes.md")
	require.Len(t, got, 2)

	byCreated := map[int64]models.Recipe{}
	for _, r := range got {
		byCreated[r.Created] = r
	}
	nikujaga := byCreated[1710000000000]
	assert.Equal(t, "肉じゃが", nikujaga.Title)
	assert.Equal(t, []string{"beef", "potato"}, nikujaga.Ingredients)
	assert.Equal(t, []string{"和食"}, nikujaga.Tags)
	assert.InDelta(t, 4.5, nikujaga.Rating, 0.001)
	assert.Equal(t, 3, nikujaga.CookedCount)
	assert.Equal(t, recipes[0].Images, nikujaga.Images)
	assert.Equal(t, []string{}, byCreated[1700000000000].Images)

	store := newTestStore(t)
	added, err := store.Import(context.Background(), got)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	first, _ := store.Get(0)
	assert.Equal(t, "肉じゃが", first.Title)
}

func TestExportStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := exportRecipes(ctx, t.TempDir(), []models.Recipe{{Title: "x"}}, func(string) {})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func key(s string) tea.KeyPressMsg {
	switch s {
	case "tab":
		return tea.KeyPressMsg{Code: tea.KeyTab}
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	}
	r := []rune(s)[0]
	return tea.KeyPressMsg{Code: r, Text: s}
}

func send(m browseModel, keys ...string) browseModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(browseModel)
	}
	return m
}

func seedStore(t *testing.T, titles ...string) *service.RecipeStore {
	t.Helper()
	s := newTestStore(t)
	for _, title := range titles {
		_, err := s.Create(context.Background(), models.Draft{Title: title, Images: []string{}})
		require.NoError(t, err)
	}
	return s
}

func TestBrowseFiltersOnEveryKeystroke(t *testing.T) {
	s := seedStore(t, "Ramen", "Curry", "Ramune jelly")
	m := newBrowseModel(context.Background(), s)
	require.Len(t, m.items, 3)

	m = send(m, "r", "a", "m")
	assert.Len(t, m.items, 2)

	m = send(m, "e", "n")
	require.Len(t, m.items, 1)
	assert.Equal(t, "Ramen", m.items[0].Recipe.Title)
}

func TestBrowseCyclesSort(t *testing.T) {
	s := seedStore(t, "b", "a", "c")
	m := newBrowseModel(context.Background(), s)
	assert.Equal(t, service.SortNone, m.mode)

	m = send(m, "tab")
	assert.Equal(t, service.SortRecommended, m.mode)
	m = send(m, "tab", "tab")
	assert.Equal(t, service.SortTitle, m.mode)
	assert.Equal(t, "a", m.items[0].Recipe.Title)
	m = send(m, "tab")
	assert.Equal(t, service.SortRecommended, m.mode)
}

func TestBrowseCookedUsesBackReference(t *testing.T) {
	s := seedStore(t, "Soba", "Udon", "Somen")
	m := newBrowseModel(context.Background(), s)

	// "so" matches Somen (index 0) and Soba (index 2).
	m = send(m, "s", "o", "down", "enter", "c")

	soba, _ := s.Get(2)
	assert.Equal(t, "Soba", soba.Title)
	assert.Equal(t, 1, soba.CookedCount)
	somen, _ := s.Get(0)
	assert.Zero(t, somen.CookedCount)
	assert.False(t, m.statusErr)
}

func TestBrowseDeleteAsksFirst(t *testing.T) {
	s := seedStore(t, "Tempura", "Sushi")
	m := newBrowseModel(context.Background(), s)

	m = send(m, "enter", "d")
	require.NotNil(t, m.confirming)
	assert.Contains(t, m.render(), `Delete "Sushi"?`)

	m = send(m, "n")
	assert.Nil(t, m.confirming)
	assert.Equal(t, 2, s.Len())

	m = send(m, "d", "y")
	assert.Equal(t, 1, s.Len())
	assert.Len(t, m.items, 1)
	remaining, _ := s.Get(0)
	assert.Equal(t, "Tempura", remaining.Title)
}
