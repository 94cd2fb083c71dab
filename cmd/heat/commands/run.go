package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/pipeline"
	"github.com/wonny/watchheat/internal/report"
	"github.com/wonny/watchheat/pkg/redis"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Acquire, store and score one day",
	Long: `Runs the daily pipeline for one as-of date:

  acquire → persist → reconstruct → momentum → compose → overlay → rank → report

Item-level write failures are reported and skipped. A storage failure aborts
the run. With --dry-run observations stay in memory and reports are still
written.

Example:
  go run ./cmd/heat run
  go run ./cmd/heat run --date 2025-03-31 --fixtures testdata/fixtures.yaml --dry-run
  go run ./cmd/heat run --format csv,xlsx,html --out reports/`,
	RunE: runHeat,
}

var (
	runDate     string
	runDryRun   bool
	runFixtures string
	runFormats  string
	runOut      string
	runTop      int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "as-of date YYYY-MM-DD (default today)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "do not write to the snapshot store")
	runCmd.Flags().StringVar(&runFixtures, "fixtures", "", "YAML fixtures instead of the live APIs")
	runCmd.Flags().StringVar(&runFormats, "format", "csv,html", "report formats (csv, xlsx, html)")
	runCmd.Flags().StringVar(&runOut, "out", "", "report directory (default REPORT_DIR)")
	runCmd.Flags().IntVar(&runTop, "top", 20, "records to print")
}

func runHeat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asOf, err := parseDate(runDate)
	if err != nil {
		return err
	}
	writers, err := report.ByFormat(splitList(runFormats))
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.universe()
	if err != nil {
		return err
	}
	acq, err := a.acquirer(runFixtures)
	if err != nil {
		return err
	}

	PrintHeader("Watch Heat Run",
		fmt.Sprintf("As of   : %s", asOf.Format(contracts.DateLayout)),
		fmt.Sprintf("Items   : %d", len(items)),
		fmt.Sprintf("Dry run : %v", runDryRun))

	res, err := a.runner(acq).Run(ctx, pipeline.RunConfig{AsOf: asOf, Items: items, DryRun: runDryRun})
	if err != nil {
		return err
	}

	if !runDryRun {
		cache := redis.NewCache(a.redis, keyPrefix)
		if err := cache.Delete(ctx, redis.HeatKey(asOf.Format(contracts.DateLayout))); err != nil {
			a.log.WithError(err).Warn("Failed to drop cached heat records")
		}
	}

	PrintRunSummary(res.Metadata)
	PrintRecords(res.Records, runTop)

	dir := runOut
	if dir == "" {
		dir = a.cfg.ReportDir
	}
	paths, err := report.WriteAll(dir, res, writers...)
	if err != nil {
		return err
	}
	fmt.Println()
	for _, p := range paths {
		fmt.Printf("✅ Saved %s\n", p)
	}
	return nil
}
