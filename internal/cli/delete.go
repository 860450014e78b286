package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/service"
)

var (
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <number>",
	Short: "Delete a recipe",
	Long: `Delete a recipe from the catalog.

Requires confirmation unless --force is used.

Examples:
  recipebox delete 4
  recipebox delete 4 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	index, err := recipeAt(args[0])
	if err != nil {
		return err
	}
	r, _ := store.Get(index)

	confirmer := newConfirmer()
	if deleteForce {
		confirmer = alwaysConfirm
	}

	deleted, err := service.ConfirmDelete(ctx, store, confirmer, index)
	if err != nil {
		return reportSaveError(err)
	}
	if !deleted {
		fmt.Println("Cancelled.")
		return nil
	}

	fmt.Println(defaultTheme.completedStyle().Render(fmt.Sprintf("✓ Deleted %q", r.Title)))
	return nil
}
