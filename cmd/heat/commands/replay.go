package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/report"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Recompute heat for a past date range",
	Long: `Scores every day in [--from, --to] from stored observations only.
Nothing is acquired or written to the store, so replays are repeatable.

Example:
  go run ./cmd/heat replay --from 2025-01-01 --to 2025-03-31
  go run ./cmd/heat replay --from 2025-03-01 --to 2025-03-31 --format csv --out backtest/`,
	RunE: runReplay,
}

var (
	replayFrom    string
	replayTo      string
	replayFormats string
	replayOut     string
	replayAll     bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayFrom, "from", "", "first as-of date YYYY-MM-DD")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "last as-of date YYYY-MM-DD (default today)")
	replayCmd.Flags().StringVar(&replayFormats, "format", "", "write reports per day in these formats")
	replayCmd.Flags().StringVar(&replayOut, "out", "", "report directory (default REPORT_DIR)")
	replayCmd.Flags().BoolVar(&replayAll, "all-items", false, "score every stored item instead of the universe file")
	replayCmd.MarkFlagRequired("from")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	from, err := contracts.ParseDay(replayFrom)
	if err != nil {
		return err
	}
	to, err := parseDate(replayTo)
	if err != nil {
		return err
	}
	writers, err := report.ByFormat(splitList(replayFormats))
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var items []contracts.Item
	if !replayAll {
		if items, err = a.universe(); err != nil {
			return err
		}
	}

	PrintHeader("Watch Heat Replay",
		fmt.Sprintf("Period : %s ~ %s", from.Format(contracts.DateLayout), to.Format(contracts.DateLayout)))

	results, err := a.runner(nil).Replay(ctx, from, to, items)
	if err != nil {
		return err
	}

	dir := replayOut
	if dir == "" {
		dir = a.cfg.ReportDir
	}

	fmt.Printf("  %-10s %8s %8s %6s %8s\n", "DATE", "SCORED", "MISSING", "HOT", "TOP")
	for _, res := range results {
		top := "-"
		if len(res.Records) > 0 && res.Records[0].Hot {
			top = res.Records[0].ItemID
		}
		m := res.Metadata
		fmt.Printf("  %-10s %8d %8d %6d %s\n",
			m.AsOf.Format(contracts.DateLayout), m.Scored, m.MissingObservations, m.HotCount, top)

		if len(writers) > 0 {
			if _, err := report.WriteAll(dir, res, writers...); err != nil {
				return err
			}
		}
	}
	PrintSeparator()
	return nil
}
