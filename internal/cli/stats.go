package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/recipebox/internal/client"
	"github.com/raphaelgruber/recipebox/internal/format"
	"github.com/raphaelgruber/recipebox/internal/metrics"
	"github.com/raphaelgruber/recipebox/internal/server"
)

var (
	statsServer string
	statsJSON   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection totals and runtime statistics",
	Long: `Show collection totals (recipes, times cooked, average rating) and
timing statistics for image encoding, storage writes and view derivation.

With --server, the statistics of a running recipebox-server are shown
instead; its runtime numbers cover everything since it started.

Examples:
  recipebox stats
  recipebox stats --server http://localhost:8585
  recipebox stats --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsServer, "server", "", "read statistics from a recipebox-server URL")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	stats := server.StatsResponse{
		Collection: store.Stats(),
		Runtime:    collector.Snapshot(),
	}
	if statsServer != "" {
		remote, err := client.New(statsServer).Stats(context.Background())
		if err != nil {
			return err
		}
		stats = *remote
	}

	if statsJSON {
		return writeJSON(os.Stdout, stats)
	}
	printStats(stats)
	return nil
}

// printStats displays collection totals followed by runtime statistics.
func printStats(stats server.StatsResponse) {
	c := stats.Collection
	fmt.Printf("Collection\n")
	fmt.Printf("═══════════════════════════════════════\n")
	fmt.Printf("Recipes:      %d\n", c.Recipes)
	fmt.Printf("Times cooked: %d\n", c.TotalCooked)
	fmt.Printf("Images:       %d\n", c.Images)
	if c.Rated > 0 {
		fmt.Printf("Rated:        %d, average %s\n", c.Rated, format.Rating(c.AverageRating))
	} else {
		fmt.Printf("Rated:        none\n")
	}

	r := stats.Runtime
	fmt.Printf("\nRuntime (in-memory, since start)\n")
	fmt.Printf("═══════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", r.UptimeSeconds)

	if r.ImageEncode != nil {
		fmt.Printf("\nImage encode:\n")
		printOpStats(r.ImageEncode, "images")
	}
	if r.Persist != nil {
		fmt.Printf("\nStorage writes:\n")
		printOpStats(r.Persist, "bytes")
	}
	if r.View != nil {
		fmt.Printf("\nView derivation:\n")
		printOpStats(r.View, "results")
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot, unit string) {
	fmt.Printf("  Calls: %d, Errors: %d, Total: %dms\n", op.Count, op.Errors, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	fmt.Printf("  %s: %d total, max %d\n", unit, op.TotalItems, op.MaxItems)
}
