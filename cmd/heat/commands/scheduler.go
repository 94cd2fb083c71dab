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
	"github.com/wonny/watchheat/internal/scheduler"
	"github.com/wonny/watchheat/internal/scheduler/jobs"
	"github.com/wonny/watchheat/internal/universe"
	"github.com/wonny/watchheat/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the daily heat job on a schedule",
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Schedules daily_heat on HEAT_SCHEDULE (cron with seconds, default
"0 30 6 * * *") and blocks until Ctrl+C.

Example:
  go run ./cmd/heat scheduler start
  go run ./cmd/heat scheduler start --now`,
		RunE: runScheduler,
	}
)

var (
	schedulerNow     bool
	schedulerFormats string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)

	schedulerStartCmd.Flags().BoolVar(&schedulerNow, "now", false, "also run daily_heat once at start")
	schedulerStartCmd.Flags().StringVar(&schedulerFormats, "format", "csv,xlsx,html", "report formats")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writers, err := report.ByFormat(splitList(schedulerFormats))
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	acq, err := a.acquirer("")
	if err != nil {
		return err
	}

	sched := scheduler.New(a.log)
	job := jobs.NewDailyHeatJob(jobs.DailyHeatConfig{
		Runner: a.runner(acq),
		Universe: func() ([]contracts.Item, error) {
			return universe.Load(a.cfg.UniversePath)
		},
		Writers:   writers,
		ReportDir: a.cfg.ReportDir,
		Cache:     redis.NewCache(a.redis, keyPrefix),
		Schedule:  a.cfg.Schedule,
	}, a.log)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	fmt.Printf("✅ Scheduler started: %s on %q\n", job.Name(), job.Schedule())
	if schedulerNow {
		if err := sched.RunJob(job.Name()); err != nil {
			return err
		}
	}
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()
	return nil
}
