package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/pipeline"
	"github.com/wonny/watchheat/internal/report"
	"github.com/wonny/watchheat/internal/scheduler"
	"github.com/wonny/watchheat/pkg/logger"
	"github.com/wonny/watchheat/pkg/redis"
)

// Runner runs the acquire → persist → score pipeline for one day
type Runner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*contracts.RunResult, error)
}

// DailyHeatConfig wires a DailyHeatJob
type DailyHeatConfig struct {
	Runner    Runner
	Universe  func() ([]contracts.Item, error) // reloaded every run
	Writers   []report.Writer
	ReportDir string
	Cache     *redis.Cache // heat cache entry of the day is dropped after a run
	Schedule  string
	Now       func() time.Time
}

// DailyHeatJob runs the pipeline for the current day and writes reports.
// It is the only place the wall clock picks the as-of date.
type DailyHeatJob struct {
	cfg    DailyHeatConfig
	logger *logger.Logger
}

// NewDailyHeatJob creates a new daily heat job
func NewDailyHeatJob(cfg DailyHeatConfig, log *logger.Logger) *DailyHeatJob {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 30 6 * * *"
	}
	if cfg.Cache == nil {
		cfg.Cache = redis.NewCache(redis.Disabled(), "")
	}
	return &DailyHeatJob{cfg: cfg, logger: log}
}

// Name returns the job name
func (j *DailyHeatJob) Name() string {
	return "daily_heat"
}

// Schedule returns the cron schedule
func (j *DailyHeatJob) Schedule() string {
	return j.cfg.Schedule
}

// Run executes one daily run
func (j *DailyHeatJob) Run(ctx context.Context) error {
	asOf := contracts.Day(j.cfg.Now())
	log := j.logger.WithAsOf(asOf)
	log.Info("Starting scheduled heat run")

	items, err := j.cfg.Universe()
	if err != nil {
		return scheduler.Permanent(fmt.Errorf("load universe: %w", err))
	}

	res, err := j.cfg.Runner.Run(ctx, pipeline.RunConfig{AsOf: asOf, Items: items})
	if err != nil {
		if errors.Is(err, redis.ErrLocked) {
			return scheduler.Permanent(err)
		}
		return fmt.Errorf("heat run: %w", err)
	}

	if err := j.cfg.Cache.Delete(ctx, redis.HeatKey(asOf.Format(contracts.DateLayout))); err != nil {
		log.WithError(err).Warn("Failed to drop cached heat records")
	}

	paths, err := report.WriteAll(j.cfg.ReportDir, res, j.cfg.Writers...)
	if err != nil {
		return scheduler.Permanent(fmt.Errorf("write reports: %w", err))
	}

	log.WithFields(map[string]interface{}{
		"run_id":   res.Metadata.RunID,
		"hot":      res.Metadata.HotCount,
		"failures": len(res.Metadata.Failures),
		"reports":  paths,
	}).Info("Scheduled heat run completed")

	return nil
}
