package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/service"
)

var (
	listSort  string
	listLimit int
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recipes",
	Long: `List all recipes as cards.

Sort modes:
  none         storage order, newest added first (default)
  recommended  highest rated first
  newest       most recently added first
  title        by title, Japanese collation

The number on each card is what edit, show, cooked and delete expect.

Examples:
  recipebox list
  recipebox list --sort recommended
  recipebox list --sort title -n 10
  recipebox list --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listSort, "sort", "", "sort mode: recommended, newest, title")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "max results (0 for all)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of cards")
}

func runList(cmd *cobra.Command, args []string) error {
	items := store.View("", service.ParseSortMode(listSort))
	if listJSON {
		return writeJSON(os.Stdout, limitItems(items, listLimit))
	}

	if len(items) == 0 {
		fmt.Println("No recipes yet. Add one with 'recipebox add'.")
		return nil
	}
	printItems(os.Stdout, limitItems(items, listLimit), len(items))
	return nil
}

func limitItems(items []models.ViewItem, limit int) []models.ViewItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// printItems renders cards followed by a count line.
func printItems(w io.Writer, items []models.ViewItem, total int) {
	for _, item := range items {
		fmt.Fprintln(w, newCard(item).Render(defaultTheme, false))
	}
	if len(items) < total {
		fmt.Fprintln(w, defaultTheme.hintStyle().Render(fmt.Sprintf("Showing %d of %d recipes", len(items), total)))
		return
	}
	fmt.Fprintln(w, defaultTheme.hintStyle().Render(fmt.Sprintf("%d recipes", total)))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
