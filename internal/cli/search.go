package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/service"
)

var (
	searchSort  string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search recipes",
	Long: `Search recipes by a case-insensitive substring of the title, steps,
ingredients or tags.

Examples:
  recipebox search カレー
  recipebox search "soy sauce" --sort recommended
  recipebox search weeknight --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "sort mode: recommended, newest, title")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max results (0 for all)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print JSON instead of cards")
}

func runSearch(cmd *cobra.Command, args []string) error {
	term := args[0]
	items := store.View(term, service.ParseSortMode(searchSort))
	if searchJSON {
		return writeJSON(os.Stdout, limitItems(items, searchLimit))
	}

	if len(items) == 0 {
		fmt.Printf("No recipes match %q.\n", term)
		return nil
	}
	printItems(os.Stdout, limitItems(items, searchLimit), len(items))
	return nil
}
