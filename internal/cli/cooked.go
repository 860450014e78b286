package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/service"
)

var cookedCmd = &cobra.Command{
	Use:   "cooked <number>",
	Short: "Record that you cooked a recipe",
	Long: `Increment the cooked counter of a recipe by one.

Example:
  recipebox cooked 2`,
	Args: cobra.ExactArgs(1),
	RunE: runCooked,
}

func runCooked(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	index, err := parseRecipeNumber(args[0])
	if err != nil {
		return err
	}
	ok, err := store.MarkCooked(ctx, index)
	if !ok {
		return fmt.Errorf("recipe #%s: %w", args[0], service.ErrNotFound)
	}
	if err != nil {
		return reportSaveError(err)
	}

	r, _ := store.Get(index)
	fmt.Println(defaultTheme.completedStyle().Render(fmt.Sprintf("✓ %s: cooked %d times", r.Title, r.CookedCount)))
	return nil
}
