package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/format"
	"github.com/raphaelgruber/recipebox/internal/models"
)

var showCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show a recipe with ingredients and steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	index, err := recipeAt(args[0])
	if err != nil {
		return err
	}
	r, _ := store.Get(index)
	printRecipe(os.Stdout, models.ViewItem{Recipe: r, Index: index})
	return nil
}

// printRecipe writes the full detail view of one recipe.
func printRecipe(w io.Writer, item models.ViewItem) {
	r := item.Recipe
	t := defaultTheme

	fmt.Fprintf(w, "%s %s\n", t.hintStyle().Render(fmt.Sprintf("#%d", item.Index+1)), t.titleStyle().Render(r.Title))
	fmt.Fprintln(w, t.ratingStyle().Render(format.RatingOr(r.Rating, format.Unrated)))
	if len(r.Tags) > 0 {
		fmt.Fprintln(w, t.tagStyle().Render(strings.Join(r.Tags, ", ")))
	}
	fmt.Fprintln(w, t.hintStyle().Render(fmt.Sprintf("Added: %s · Cooked: %d times", r.DisplayDate(), r.CookedCount)))

	if len(r.Ingredients) > 0 {
		fmt.Fprintf(w, "\n%s\n", t.titleStyle().Render("Ingredients"))
		for _, ing := range r.Ingredients {
			fmt.Fprintf(w, "  • %s\n", ing)
		}
	}
	if strings.TrimSpace(r.Steps) != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", t.titleStyle().Render("Steps"), r.Steps)
	}
	if len(r.Images) > 0 {
		fmt.Fprintln(w, t.hintStyle().Render(fmt.Sprintf("\n%d image(s) attached", len(r.Images))))
	}
}
