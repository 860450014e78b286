package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/recipebox/internal/format"
	"github.com/raphaelgruber/recipebox/internal/models"
)

// Theme holds the color scheme for cards and the browser.
type Theme struct {
	Title    lipgloss.Color
	Rating   lipgloss.Color
	Tags     lipgloss.Color
	Success  lipgloss.Color
	Error    lipgloss.Color
	Hint     lipgloss.Color
	Selected lipgloss.Color
	Border   lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Title:    lipgloss.Color("#FFFFFF"),
	Rating:   lipgloss.Color("#FFAF00"), // amber
	Tags:     lipgloss.Color("#5FAFD7"), // light blue
	Success:  lipgloss.Color("#00D787"), // green
	Error:    lipgloss.Color("#FF005F"), // red
	Hint:     lipgloss.Color("#6C6C6C"), // dim gray
	Selected: lipgloss.Color("#D7AF5F"),
	Border:   lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) ratingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Rating)
}

func (t Theme) tagStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Tags)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) cardStyle(selected bool) lipgloss.Style {
	border := t.Border
	if selected {
		border = t.Selected
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// card holds the display lines of one recipe card.
type card struct {
	Number int
	Title  string
	Rating string
	Tags   string
	Meta   string
}

// newCard builds the card for a view item. Number is the 1-based index
// users pass to other commands.
func newCard(item models.ViewItem) card {
	r := item.Recipe
	return card{
		Number: item.Index + 1,
		Title:  r.Title,
		Rating: format.RatingOr(r.Rating, format.Unrated),
		Tags:   strings.Join(r.Tags, ", "),
		Meta:   fmt.Sprintf("Added: %s · Cooked: %d times", r.DisplayDate(), r.CookedCount),
	}
}

// Plain returns the card without styling.
func (c card) Plain() string {
	lines := []string{fmt.Sprintf("#%d %s", c.Number, c.Title), c.Rating}
	if c.Tags != "" {
		lines = append(lines, c.Tags)
	}
	lines = append(lines, c.Meta)
	return strings.Join(lines, "\n")
}

// Render returns the card styled with t.
func (c card) Render(t Theme, selected bool) string {
	lines := []string{
		t.hintStyle().Render(fmt.Sprintf("#%d ", c.Number)) + t.titleStyle().Render(c.Title),
		t.ratingStyle().Render(c.Rating),
	}
	if c.Tags != "" {
		lines = append(lines, t.tagStyle().Render(c.Tags))
	}
	lines = append(lines, t.hintStyle().Render(c.Meta))
	return t.cardStyle(selected).Render(strings.Join(lines, "\n"))
}
