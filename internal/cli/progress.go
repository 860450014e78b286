package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
)

// stepMsg reports that one more item was processed.
type stepMsg struct {
	done int
	name string
}

// workDoneMsg carries the result of the background work.
type workDoneMsg struct {
	err error
}

// progressModel is the bubbletea model for a file batch (import/export).
type progressModel struct {
	label    string
	total    int
	done     int
	current  string
	progress progress.Model
	theme    Theme
	finished bool
	quitting bool
	err      error
}

func newProgressModel(label string, total int) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)
	return progressModel{
		label:    label,
		total:    total,
		progress: prog,
		theme:    defaultTheme,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.progress.Init()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case stepMsg:
		m.done = msg.done
		m.current = msg.name
		return m, nil

	case workDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nCancelled.\n")
	}
	if m.finished {
		if m.err != nil {
			return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s failed: %s\n", m.label, m.err))
		}
		return ""
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	status := m.theme.tagStyle().Render(fmt.Sprintf("[%s]", m.label))
	counts := fmt.Sprintf("%d/%d files", m.done, m.total)
	current := m.theme.hintStyle().Render(m.current)

	return fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, current)
}

// batchFunc processes a batch and calls step after each item.
type batchFunc func(ctx context.Context, step func(name string)) error

// runWithProgress runs work while showing a progress bar on a terminal.
// Without a terminal the work runs directly. Quitting the UI cancels the
// work and returns errCancelled.
func runWithProgress(label string, total int, work batchFunc) error {
	if !isInteractive() || total == 0 {
		return work(context.Background(), func(string) {})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(newProgressModel(label, total))
	result := make(chan error, 1)
	go func() {
		done := 0
		err := work(ctx, func(name string) {
			done++
			p.Send(stepMsg{done: done, name: name})
		})
		result <- err
		p.Send(workDoneMsg{err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		cancel()
		<-result
		return fmt.Errorf("progress UI error: %w", err)
	}
	if m, ok := finalModel.(progressModel); ok && m.quitting {
		cancel()
		<-result
		return errCancelled
	}
	return <-result
}
