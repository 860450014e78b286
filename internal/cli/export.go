package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/parser"
)

var (
	exportSearch string
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export recipes to Markdown files",
	Long: `Export recipes to Markdown files for backup or migration.

Each recipe becomes <created>-<slug>.md with its metadata in frontmatter.
Images are written next to it as <created>-<slug>.images.json.

Examples:
  recipebox export ./backup
  recipebox export ./backup --search 和食`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSearch, "search", "", "export only recipes matching this term")
}

func runExport(cmd *cobra.Command, args []string) error {
	exportPath := args[0]

	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	items := store.View(exportSearch, "")
	if len(items) == 0 {
		fmt.Println("No recipes to export.")
		return nil
	}
	recipes := make([]models.Recipe, len(items))
	for i, item := range items {
		recipes[i] = item.Recipe
	}

	fmt.Printf("Exporting %d recipes...\n", len(recipes))

	var exported int
	err := runWithProgress("export", len(recipes), func(ctx context.Context, step func(string)) error {
		var err error
		exported, err = exportRecipes(ctx, exportPath, recipes, step)
		return err
	})
	if errors.Is(err, errCancelled) {
		fmt.Printf("Cancelled after %d recipes.\n", exported)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nExported %d recipes to %s\n", exported, exportPath)
	return nil
}

// exportRecipes writes each recipe and its image sidecar into dir. It stops
// at the first write error.
func exportRecipes(ctx context.Context, dir string, recipes []models.Recipe, step func(string)) (int, error) {
	exported := 0
	for _, r := range recipes {
		if err := ctx.Err(); err != nil {
			return exported, err
		}

		content, err := parser.RenderRecipe(r)
		if err != nil {
			return exported, fmt.Errorf("render %q: %w", r.Title, err)
		}
		name := parser.FileName(r)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return exported, fmt.Errorf("write %s: %w", name, err)
		}

		if len(r.Images) > 0 {
			data, err := json.Marshal(r.Images)
			if err != nil {
				return exported, fmt.Errorf("marshal images: %w", err)
			}
			sidecar := parser.ImagesFileName(name)
			if err := os.WriteFile(filepath.Join(dir, sidecar), data, 0644); err != nil {
				return exported, fmt.Errorf("write %s: %w", sidecar, err)
			}
		}

		exported++
		step(name)
	}
	return exported, nil
}
