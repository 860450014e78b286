package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/service"
)

// errCancelled is returned when the user aborts an interactive form.
var errCancelled = errors.New("cancelled")

// isInteractive reports whether stdin and stdout are both terminals.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// lineConfirmer asks a y/N question on a line-oriented stream.
type lineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newLineConfirmer(in io.Reader, out io.Writer) *lineConfirmer {
	return &lineConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm returns true only for "y" or "yes".
func (c *lineConfirmer) Confirm(message string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N]: ", message)

	response, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read input: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// formConfirmer asks with a huh confirm field.
type formConfirmer struct{}

func (formConfirmer) Confirm(message string) (bool, error) {
	var yes bool
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&yes).
		WithTheme(huh.ThemeCharm()).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return yes, err
}

// newConfirmer picks the huh prompt on a terminal and a plain y/N prompt
// otherwise.
func newConfirmer() service.Confirmer {
	if isInteractive() {
		return formConfirmer{}
	}
	return newLineConfirmer(os.Stdin, os.Stdout)
}

// alwaysConfirm is used with --force.
var alwaysConfirm = service.ConfirmFunc(func(string) (bool, error) { return true, nil })

// runRecipeForm shows the create/edit form prefilled with f and returns the
// values entered. Image paths are entered comma separated.
func runRecipeForm(f models.FormData, images string) (models.FormData, string, error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("e.g., 肉じゃが").
				Value(&f.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Rating").
				Description("0 to 5, one decimal (optional)").
				Placeholder("4.5").
				Value(&f.Rating).
				Validate(func(s string) error {
					_, err := models.ParseRating(s)
					return err
				}),

			huh.NewInput().
				Title("Tags").
				Description("Comma-separated (optional)").
				Placeholder("e.g., 和食, weeknight").
				Value(&f.Tags),
		),

		huh.NewGroup(
			huh.NewText().
				Title("Ingredients").
				Description("One per line").
				CharLimit(10000).
				Value(&f.Ingredients),

			huh.NewText().
				Title("Steps").
				CharLimit(20000).
				Value(&f.Steps),

			huh.NewInput().
				Title("Images").
				Description("Comma-separated file paths (optional)").
				Value(&images),
		),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return f, images, errCancelled
		}
		return f, images, fmt.Errorf("form error: %w", err)
	}
	return f, images, nil
}
