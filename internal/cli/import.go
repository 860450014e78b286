package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/parser"
)

var (
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import <path>...",
	Short: "Import recipes from Markdown files",
	Long: `Import recipes from Markdown files or directories written by 'recipebox export'.

Creation dates and cooked counts are kept. Recipes that already exist (same
creation timestamp) are skipped. Files without frontmatter are accepted as
long as they have a '# Title' heading.

Examples:
  recipebox import ./backup
  recipebox import ./curry.md ./ramen.md
  recipebox import ./backup --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "show what would be imported")
}

func runImport(cmd *cobra.Command, args []string) error {
	paths, err := collectRecipeFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No Markdown files found.")
		return nil
	}

	var (
		recipes  []models.Recipe
		warnings []string
	)
	err = runWithProgress("import", len(paths), func(ctx context.Context, step func(string)) error {
		var err error
		recipes, warnings, err = readRecipeFiles(ctx, paths, step)
		return err
	})
	if errors.Is(err, errCancelled) {
		fmt.Println("Cancelled. Nothing was imported.")
		return nil
	}
	if err != nil {
		return err
	}

	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, defaultTheme.errorStyle().Render("Warning: ")+w)
	}

	if importDryRun {
		for _, r := range recipes {
			fmt.Printf("  %s (%d ingredients, %d images)\n", r.Title, len(r.Ingredients), len(r.Images))
		}
		fmt.Printf("\nWould import up to %d recipes.\n", len(recipes))
		return nil
	}

	added, err := store.Import(context.Background(), recipes)
	if err != nil {
		return reportSaveError(err)
	}

	fmt.Println(defaultTheme.completedStyle().Render(fmt.Sprintf("✓ Imported %d recipes", added)))
	if skipped := len(recipes) - added; skipped > 0 {
		fmt.Println(defaultTheme.hintStyle().Render(fmt.Sprintf("%d already present, skipped", skipped)))
	}
	return nil
}

// collectRecipeFiles expands directories into the .md files they contain.
func collectRecipeFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.md"))
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", arg, err)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

// readRecipeFiles parses each file and attaches its image sidecar when
// present. Unparseable files become warnings rather than errors.
func readRecipeFiles(ctx context.Context, paths []string, step func(string)) ([]models.Recipe, []string, error) {
	var (
		recipes  []models.Recipe
		warnings []string
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		name := filepath.Base(path)

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		r, err := parser.ParseRecipe(string(content))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
			step(name)
			continue
		}

		images, err := readImagesSidecar(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
		} else {
			r.Images = images
		}

		recipes = append(recipes, r)
		step(name)
	}
	return recipes, warnings, nil
}

// readImagesSidecar returns the images stored next to an exported recipe.
// A missing sidecar means no images.
func readImagesSidecar(mdPath string) ([]string, error) {
	data, err := os.ReadFile(parser.ImagesFileName(mdPath))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read images: %w", err)
	}

	var images []string
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	out := images[:0]
	for _, img := range images {
		if strings.HasPrefix(img, "data:image/") {
			out = append(out, img)
		}
	}
	return out, nil
}
