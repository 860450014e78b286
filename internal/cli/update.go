package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/imaging"
	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/service"
)

var (
	editFlags       recipeFlags
	editClearImages bool
)

var editCmd = &cobra.Command{
	Use:     "edit <number>",
	Aliases: []string{"update"},
	Short:   "Edit an existing recipe",
	Long: `Edit a recipe by the number shown in 'recipebox list'.

Only the fields you pass are changed; the creation date and cooked count are
always kept. Existing images stay unless new ones are given with --image or
--clear-images is set. Without flags on a terminal, the form is shown
prefilled with the current values.

Examples:
  recipebox edit 3
  recipebox edit 3 --rating 5
  recipebox edit 3 --image ./better-photo.jpg
  recipebox edit 3 --clear-images`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editFlags.register(editCmd)
	editCmd.Flags().BoolVar(&editClearImages, "clear-images", false, "remove existing images")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	index, err := recipeAt(args[0])
	if err != nil {
		return err
	}
	store.BeginEdit(index)
	defer store.CancelEdit()

	current, _ := store.Get(index)
	form, err := editFlags.apply(cmd, formFromRecipe(current))
	if err != nil {
		return err
	}
	images := editFlags.images

	if !editFlags.anySet(cmd) && !editClearImages && isInteractive() {
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
		return fmt.Errorf("title cannot be empty")
	}

	res, err := saver.Save(ctx, service.SaveRequest{
		Form:        form,
		Images:      imaging.FileSources(images),
		ClearImages: editClearImages,
	})
	if err != nil {
		return reportSaveError(err)
	}
	if res.Missing {
		return fmt.Errorf("recipe #%s: %w", args[0], service.ErrNotFound)
	}

	fmt.Println(defaultTheme.completedStyle().Render("✓ Updated"))
	fmt.Println(newCard(models.ViewItem{Recipe: res.Recipe, Index: res.Index}).Render(defaultTheme, false))
	return nil
}

// formFromRecipe prefills form values from an existing record.
func formFromRecipe(r models.Recipe) models.FormData {
	rating := ""
	if r.Rating > 0 {
		rating = fmt.Sprintf("%g", r.Rating)
	}
	return models.FormData{
		Title:       r.Title,
		Rating:      rating,
		Ingredients: models.JoinLines(r.Ingredients),
		Tags:        models.JoinTags(r.Tags),
		Steps:       r.Steps,
	}
}
