package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"BeerSync/internal/app"
	"BeerSync/internal/config"
	"BeerSync/internal/domain"
	"BeerSync/internal/infrastructure/openfoodfacts"
	"BeerSync/internal/usecase"
)

// syncFlags holds the per-run switches of the sync command.
type syncFlags struct {
	dryRun           bool
	skipBreweries    bool
	skipProducts     bool
	requestDelayMs   int
	productsPageSize int
	productsMaxPages int
	productsDelayMs  int
	discoveryLimit   int
	noDiscovery      bool
}

var syncOpts syncFlags

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the enrichment pipeline once",
	Long: `Run all six stages once: load the baseline CSV and overrides, enrich from
both directories, merge, validate and write the snapshot and report.

Examples:
  beersync sync
  beersync sync --dry-run
  beersync sync --skip-products --request-delay 250
  beersync sync --products-max-pages 2 --no-discovery`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.BoolVar(&syncOpts.dryRun, "dry-run", false, "run every stage but write no artifacts")
	f.BoolVar(&syncOpts.skipBreweries, "skip-brewery", false, "skip the Open Brewery DB stage")
	f.BoolVar(&syncOpts.skipProducts, "skip-products", false, "skip the Open Food Facts stage")
	f.IntVar(&syncOpts.requestDelayMs, "request-delay", 0, "delay between brewery lookups in milliseconds")
	f.IntVar(&syncOpts.productsPageSize, "products-page-size", 0, "catalog page size (min 25)")
	f.IntVar(&syncOpts.productsMaxPages, "products-max-pages", 0, "maximum catalog pages (min 1)")
	f.IntVar(&syncOpts.productsDelayMs, "products-delay", 0, "delay between catalog pages in milliseconds")
	f.IntVar(&syncOpts.discoveryLimit, "discovery-limit", 0, "maximum discovered products")
	f.BoolVar(&syncOpts.noDiscovery, "no-discovery", false, "do not append unmatched catalog products")
}

// apply copies every flag the user set onto cfg.
func (o syncFlags) apply(cfg *config.Config, changed func(name string) bool) {
	if changed("request-delay") {
		cfg.OpenBreweryDB.RequestDelay = time.Duration(o.requestDelayMs) * time.Millisecond
	}
	if changed("products-page-size") {
		cfg.OpenFoodFacts.PageSize = max(o.productsPageSize, openfoodfacts.MinPageSize)
	}
	if changed("products-max-pages") {
		cfg.OpenFoodFacts.MaxPages = o.productsMaxPages
	}
	if changed("products-delay") {
		cfg.OpenFoodFacts.RequestDelay = time.Duration(o.productsDelayMs) * time.Millisecond
	}
	if changed("discovery-limit") {
		cfg.OpenFoodFacts.DiscoveryLimit = o.discoveryLimit
	}
	if o.noDiscovery {
		cfg.OpenFoodFacts.IncludeDiscovery = false
	}
}

func (o syncFlags) runOptions() usecase.RunOptions {
	return usecase.RunOptions{
		DryRun:        o.dryRun,
		SkipBreweries: o.skipBreweries,
		SkipProducts:  o.skipProducts,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	syncOpts.apply(&cfg, cmd.Flags().Changed)

	ctx, stop := signalContext()
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	summary, err := application.Sync(ctx, syncOpts.runOptions())
	if err != nil {
		var stageErr *domain.StageError
		if errors.As(err, &stageErr) {
			logger.Error("sync aborted", "stage", stageErr.Stage, "error", stageErr.Err)
		}
		return err
	}

	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

func printSummary(w io.Writer, s usecase.Summary) {
	fmt.Fprintf(w, "Run %s finished\n", s.RunID)
	fmt.Fprintf(w, "  input:      %d\n", s.InputCount)
	fmt.Fprintf(w, "  output:     %d\n", s.OutputCount)
	fmt.Fprintf(w, "  matched:    %d/%d\n", s.Matched, s.Attempted)
	fmt.Fprintf(w, "  discovered: %d\n", s.Discovered)
	fmt.Fprintf(w, "  overrides:  %d\n", s.OverridesApplied)
	fmt.Fprintf(w, "  invalid:    %d\n", s.ValidationErrors)
	for _, stage := range s.Degraded {
		fmt.Fprintf(w, "  degraded:   %s\n", stage)
	}
	if s.DryRun {
		fmt.Fprintln(w, "Dry run: no artifacts written.")
		return
	}
	fmt.Fprintf(w, "Snapshot: %s\n", s.SnapshotLocation)
	fmt.Fprintf(w, "Report:   %s\n", s.ReportLocation)
}
