package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/service"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse and search recipes interactively",
	Long: `Open a full-screen browser with live search.

Keys:
  type        filter by title, steps, ingredients or tags
  tab         cycle sort mode (recommended, newest, title)
  up/down     move the selection
  enter       leave the search box to act on the selection
  c           mark the selected recipe as cooked
  d           delete the selected recipe (asks first)
  /           back to the search box
  esc, q      quit`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !isInteractive() {
		return fmt.Errorf("browse needs a terminal; use 'recipebox list' or 'recipebox search'")
	}
	p := tea.NewProgram(newBrowseModel(context.Background(), store))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browse UI error: %w", err)
	}
	return nil
}

// browseModel is the bubbletea model for the live search browser. The view
// is derived from the store again after every keystroke and mutation.
type browseModel struct {
	ctx    context.Context
	store  *service.RecipeStore
	input  textinput.Model
	theme  Theme
	mode   service.SortMode
	items  []models.ViewItem
	cursor int

	// listFocus is true when keys act on the selection instead of the input.
	listFocus bool
	// confirming holds the recipe awaiting a y/n delete answer.
	confirming *models.ViewItem

	status    string
	statusErr bool
	height    int
}

func newBrowseModel(ctx context.Context, s *service.RecipeStore) browseModel {
	input := textinput.New()
	input.Prompt = "🔍 "
	input.Placeholder = "search recipes"
	input.SetWidth(40)
	input.Focus()

	m := browseModel{
		ctx:   ctx,
		store: s,
		input: input,
		theme: defaultTheme,
	}
	m.refresh()
	return m
}

// refresh re-derives the view and keeps the cursor in range.
func (m *browseModel) refresh() {
	m.items = m.store.View(m.input.Value(), m.mode)
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m browseModel) selected() (models.ViewItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return models.ViewItem{}, false
	}
	return m.items[m.cursor], true
}

func (m browseModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		key := msg.String()

		if m.confirming != nil {
			return m.answerDelete(key), nil
		}

		switch key {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.mode = m.mode.Next()
			m.refresh()
			return m, nil
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
			return m, nil
		}

		if m.listFocus {
			return m.listKey(key)
		}
		if key == "enter" {
			m.listFocus = true
			m.input.Blur()
			return m, nil
		}
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.cursor = 0
		m.refresh()
	}
	return m, cmd
}

// listKey handles keys while the selection has focus.
func (m browseModel) listKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "/":
		m.listFocus = false
		cmd := m.input.Focus()
		return m, cmd
	case "c":
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		found, err := m.store.MarkCooked(m.ctx, item.Index)
		m.report(found, err, fmt.Sprintf("Cooked %q", item.Recipe.Title))
		m.refresh()
	case "d":
		if item, ok := m.selected(); ok {
			m.confirming = &item
			m.status = ""
		}
	}
	return m, nil
}

// answerDelete resolves a pending delete confirmation.
func (m browseModel) answerDelete(key string) browseModel {
	item := *m.confirming
	m.confirming = nil

	answer := service.ConfirmFunc(func(string) (bool, error) {
		return key == "y" || key == "Y", nil
	})
	deleted, err := service.ConfirmDelete(m.ctx, m.store, answer, item.Index)
	switch {
	case err != nil && !deleted:
		m.status, m.statusErr = err.Error(), true
	case !deleted:
		m.status, m.statusErr = "Cancelled.", false
	default:
		m.report(true, err, fmt.Sprintf("Deleted %q", item.Recipe.Title))
	}
	m.refresh()
	return m
}

func (m *browseModel) report(found bool, err error, success string) {
	switch {
	case !found:
		m.status, m.statusErr = service.ErrNotFound.Error(), true
	case err != nil:
		m.status, m.statusErr = service.UserMessage(err), true
	default:
		m.status, m.statusErr = "✓ "+success, false
	}
}

func (m browseModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m browseModel) render() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("  ")
	b.WriteString(t.hintStyle().Render(fmt.Sprintf("sort: %s · %d of %d", m.mode, len(m.items), m.store.Len())))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(t.hintStyle().Render("No recipes match."))
		b.WriteString("\n")
	}

	// Each card is about six lines tall; show a window around the cursor.
	visible := len(m.items)
	if m.height > 0 {
		visible = max((m.height-6)/6, 1)
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.items))
	for i := start; i < end; i++ {
		b.WriteString(newCard(m.items[i]).Render(t, i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.confirming != nil:
		b.WriteString(t.errorStyle().Render(service.DeleteMessage(m.confirming.Recipe) + " [y/N]"))
	case m.status != "" && m.statusErr:
		b.WriteString(t.errorStyle().Render(m.status))
	case m.status != "":
		b.WriteString(t.completedStyle().Render(m.status))
	case m.listFocus:
		b.WriteString(t.hintStyle().Render("c cooked · d delete · / search · tab sort · q quit"))
	default:
		b.WriteString(t.hintStyle().Render("type to search · tab sort · enter select · esc quit"))
	}
	return b.String()
}
