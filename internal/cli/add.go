package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/imaging"
	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/service"
)

// recipeFlags are the form fields shared by add and edit.
type recipeFlags struct {
	title           string
	rating          string
	ingredients     string
	ingredientsFile string
	tags            string
	steps           string
	stepsFile       string
	images          []string
}

func (f *recipeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "recipe title")
	cmd.Flags().StringVarP(&f.rating, "rating", "r", "", "rating from 0 to 5")
	cmd.Flags().StringVarP(&f.ingredients, "ingredients", "i", "", "ingredients, one per line")
	cmd.Flags().StringVar(&f.ingredientsFile, "ingredients-file", "", "read ingredients from file")
	cmd.Flags().StringVarP(&f.tags, "tags", "g", "", "comma-separated tags")
	cmd.Flags().StringVarP(&f.steps, "steps", "s", "", "preparation steps")
	cmd.Flags().StringVar(&f.stepsFile, "steps-file", "", "read steps from file")
	cmd.Flags().StringSliceVar(&f.images, "image", nil, "image file to attach (repeatable)")
}

// apply overlays the flags the user set onto base.
func (f *recipeFlags) apply(cmd *cobra.Command, base models.FormData) (models.FormData, error) {
	changed := cmd.Flags().Changed
	if changed("title") {
		base.Title = f.title
	}
	if changed("rating") {
		base.Rating = f.rating
	}
	if changed("ingredients") {
		base.Ingredients = f.ingredients
	}
	if changed("tags") {
		base.Tags = f.tags
	}
	if changed("steps") {
		base.Steps = f.steps
	}
	if f.ingredientsFile != "" {
		data, err := os.ReadFile(f.ingredientsFile)
		if err != nil {
			return base, fmt.Errorf("read ingredients file: %w", err)
		}
		base.Ingredients = string(data)
	}
	if f.stepsFile != "" {
		data, err := os.ReadFile(f.stepsFile)
		if err != nil {
			return base, fmt.Errorf("read steps file: %w", err)
		}
		base.Steps = string(data)
	}
	return base, nil
}

// anySet reports whether any form flag was given.
func (f *recipeFlags) anySet(cmd *cobra.Command) bool {
	for _, name := range []string{"title", "rating", "ingredients", "ingredients-file", "tags", "steps", "steps-file", "image"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

var addFlags recipeFlags

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new recipe",
	Long: `Add a new recipe to the catalog.

Without flags on a terminal, an interactive form is shown. Images are resized
to at most 800 pixels wide and stored inline with the recipe.

Examples:
  recipebox add
  recipebox add --title "肉じゃが" --rating 4.5 --tags "和食, weeknight" \
    --ingredients-file ./ingredients.txt --steps "Simmer 20 minutes" \
    --image ./nikujaga.jpg`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addFlags.register(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	form, err := addFlags.apply(cmd, models.FormData{})
	if err != nil {
		return err
	}
	images := addFlags.images

	if !addFlags.anySet(cmd) && isInteractive() {
		var paths string
		form, paths, err = runRecipeForm(form, "")
		if errors.Is(err, errCancelled) {
			fmt.Println("Cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
		images = splitPaths(paths)
	}

	if strings.TrimSpace(form.Title) == "" {
		return fmt.Errorf("title is required (use --title)")
	}

	res, err := saver.Save(ctx, service.SaveRequest{
		Form:   form,
		Images: imaging.FileSources(images),
	})
	if err != nil {
		return reportSaveError(err)
	}

	fmt.Println(defaultTheme.completedStyle().Render("✓ Added"))
	fmt.Println(newCard(models.ViewItem{Recipe: res.Recipe, Index: res.Index}).Render(defaultTheme, false))
	return nil
}

// splitPaths splits comma separated image paths.
func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// reportSaveError prints the user-facing explanation and returns err for the
// exit status.
func reportSaveError(err error) error {
	fmt.Fprintln(os.Stderr, defaultTheme.errorStyle().Render("✗ "+service.UserMessage(err)))
	return fmt.Errorf("save recipe: %w", err)
}
