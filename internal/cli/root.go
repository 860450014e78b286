// Package cli provides the command-line interface for recipebox.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/config"
	"github.com/raphaelgruber/recipebox/internal/db"
	"github.com/raphaelgruber/recipebox/internal/imaging"
	"github.com/raphaelgruber/recipebox/internal/metrics"
	"github.com/raphaelgruber/recipebox/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose     bool
	backendFlag string

	// Global config and store
	cfg       config.Config
	logger    *slog.Logger
	logClose  func() error
	kv        db.KV
	store     *service.RecipeStore
	saver     *service.Saver
	collector *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recipebox",
	Short: "Personal recipe catalog",
	Long: `Recipebox keeps your recipes, with photos, ratings and a count of how often
you cooked them. Search across titles, ingredients, steps and tags, and sort by
rating, date or title.

Recipes are stored in a single storage slot. The backend is chosen with
RECIPEBOX_BACKEND (file, sqlite, postgres, redis, surrealdb, s3, memory).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip storage for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if backendFlag != "" {
			cfg.Backend = backendFlag
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		} else if level < slog.LevelWarn {
			// Keep the terminal quiet; the log file still gets everything.
			level = slog.LevelWarn
		}
		logger, logClose = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		ctx := context.Background()
		var err error
		kv, err = db.Open(ctx, cfg.DBOptions(logger))
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}

		collector = metrics.NewCollector()
		store = service.NewRecipeStore(ctx, kv, service.StoreOptions{
			Key:      cfg.StorageKey,
			Location: cfg.Location(),
			Locale:   cfg.Locale,
			Logger:   logger,
			Metrics:  collector,
		})
		codec := imaging.New(cfg.ImageMaxWidth, cfg.ImageQuality, logger)
		saver = service.NewSaver(store, codec, logger, collector)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if kv != nil {
			if err := kv.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close storage: %v\n", err)
			}
		}
		if logClose != nil {
			_ = logClose()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "storage backend (overrides RECIPEBOX_BACKEND)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(cookedCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statsCmd)
}

// parseRecipeNumber converts the 1-based number shown by list into a
// collection index.
func parseRecipeNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid recipe number %q: use the number shown by 'recipebox list'", s)
	}
	return n - 1, nil
}

// recipeAt resolves a recipe number argument.
func recipeAt(arg string) (int, error) {
	index, err := parseRecipeNumber(arg)
	if err != nil {
		return 0, err
	}
	if _, ok := store.Get(index); !ok {
		return 0, fmt.Errorf("recipe #%s: %w", arg, service.ErrNotFound)
	}
	return index, nil
}
