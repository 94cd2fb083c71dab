package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/heat"
	"github.com/wonny/watchheat/internal/momentum"
	"github.com/wonny/watchheat/internal/profit"
	"github.com/wonny/watchheat/internal/series"
	"github.com/wonny/watchheat/pkg/config"
	"github.com/wonny/watchheat/pkg/logger"
)

// runLockTTL bounds how long a crashed run can block the next one
const runLockTTL = 30 * time.Minute

// Locker guards against overlapping runs against one store
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// Recorder receives run outcomes, e.g. for Prometheus
type Recorder interface {
	ObservePut(outcome string)
	ObserveRun(meta contracts.RunMetadata)
}

// Put outcomes passed to Recorder.ObservePut
const (
	PutStored   = "stored"
	PutRejected = "rejected"
	PutMissing  = "missing"
)

// Runner drives one daily run: acquire → persist → score.
type Runner struct {
	store         contracts.SnapshotStore
	acquirer      contracts.Acquirer
	reconstructor *series.Reconstructor
	momentum      *momentum.Calculator
	composer      *heat.Composer
	profit        *profit.Calculator
	lookbackDays  int
	heatCfg       config.HeatConfig
	profitCfg     config.ProfitConfig
	scoringHash   string

	locker   Locker
	recorder Recorder
	logger   *logger.Logger
}

// RunConfig holds the inputs of one run
type RunConfig struct {
	RunID  string
	AsOf   time.Time
	Items  []contracts.Item
	DryRun bool // observations are kept in memory and never reach the store
}

// NewRunner wires the core components around store. acquirer may be nil
// for a runner that only scores.
func NewRunner(
	store contracts.SnapshotStore,
	acquirer contracts.Acquirer,
	heatCfg config.HeatConfig,
	profitCfg config.ProfitConfig,
	log *logger.Logger,
) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		store:         store,
		acquirer:      acquirer,
		reconstructor: series.NewReconstructor(store),
		momentum:      momentum.NewCalculator(log),
		composer:      heat.NewComposer(heatCfg, log),
		profit:        profit.NewCalculator(profit.NewModel(profitCfg)),
		lookbackDays:  max(heatCfg.LookbackDays, momentum.Horizon90), // Z90 needs the full window
		heatCfg:       heatCfg,
		profitCfg:     profitCfg,
		scoringHash:   heat.ScoringHash(heatCfg, heat.DefaultWeights(), profitCfg),
		recorder:      nopRecorder{},
		logger:        log,
	}
}

// WithLocker makes Run hold the named run lock
func (r *Runner) WithLocker(l Locker) *Runner {
	r.locker = l
	return r
}

// WithWeights replaces the composer's component weights
func (r *Runner) WithWeights(w heat.Weights) *Runner {
	r.composer = heat.NewComposerWithWeights(r.heatCfg, w, r.logger)
	r.scoringHash = heat.ScoringHash(r.heatCfg, w, r.profitCfg)
	return r
}

// WithRecorder reports outcomes to rec
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	r.recorder = rec
	return r
}

// Run acquires and stores today's observation for every item, then scores
// them. Item-level write failures are recorded and skipped; a storage
// failure aborts the run.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*contracts.RunResult, error) {
	if r.acquirer == nil {
		return nil, errors.New("runner has no acquirer")
	}

	startedAt := time.Now()
	asOf := contracts.Day(cfg.AsOf)
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	log := r.logger.WithAsOf(asOf).WithField("run_id", runID)
	log.WithFields(map[string]interface{}{
		"items":   len(cfg.Items),
		"dry_run": cfg.DryRun,
	}).Info("Starting heat run")

	if r.locker != nil && !cfg.DryRun {
		release, err := r.locker.Acquire(ctx, "run", runLockTTL)
		if err != nil {
			return nil, fmt.Errorf("run lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	store := r.store
	if cfg.DryRun {
		store = newOverlayStore(r.store)
	}

	timer := stageTimer{}
	var failures []contracts.ItemFailure
	for _, item := range cfg.Items {
		failure, err := r.ingest(ctx, store, item, asOf, timer)
		if err != nil {
			return nil, fmt.Errorf("run %s aborted at %s: %w", runID, item.ID(), err)
		}
		if failure != nil {
			failures = append(failures, *failure)
		}
	}

	scorer := r
	if cfg.DryRun {
		scorer = r.withStore(store)
	}
	result, err := scorer.score(ctx, asOf, cfg.Items, timer)
	if err != nil {
		return nil, fmt.Errorf("run %s aborted: %w", runID, err)
	}

	result.Metadata.RunID = runID
	result.Metadata.Failures = failures
	result.Metadata.StartedAt = startedAt
	result.Metadata.Duration = time.Since(startedAt)
	r.recorder.ObserveRun(result.Metadata)

	log.WithFields(map[string]interface{}{
		"scored":               result.Metadata.Scored,
		"hot":                  result.Metadata.HotCount,
		"missing_observations": result.Metadata.MissingObservations,
		"insufficient_history": result.Metadata.InsufficientHistory,
		"failures":             len(failures),
		"duration":             result.Metadata.Duration.String(),
	}).Info("Heat run completed")

	return result, nil
}

// ingest acquires and stores one item. It returns an ItemFailure for
// errors confined to the item and an error only when the run must stop.
func (r *Runner) ingest(ctx context.Context, store contracts.SnapshotStore, item contracts.Item, asOf time.Time, timer stageTimer) (*contracts.ItemFailure, error) {
	log := r.logger.WithItem(item.ID()).WithAsOf(asOf)

	start := time.Now()
	obs, err := r.acquirer.Acquire(ctx, item, asOf)
	timer.add(contracts.StageAcquire, start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// transport errors and absent data are the same thing to the core
		log.WithError(err).Warn("No observation acquired")
		obs = nil
	}
	if obs == nil {
		r.recorder.ObservePut(PutMissing)
		log.Info("Item has no observation today")
		return nil, nil
	}

	if obs.ItemID == "" {
		obs.ItemID = item.ID()
	}
	if obs.Date.IsZero() {
		obs.Date = asOf
	}
	if obs.ItemID != item.ID() {
		r.recorder.ObservePut(PutRejected)
		return &contracts.ItemFailure{
			ItemID: item.ID(),
			Stage:  contracts.StageAcquire,
			Error:  fmt.Sprintf("acquirer returned observation for %q", obs.ItemID),
		}, nil
	}

	start = time.Now()
	err = store.Put(ctx, obs, asOf)
	timer.add(contracts.StagePersist, start)
	switch {
	case err == nil:
		r.recorder.ObservePut(PutStored)
		return nil, nil
	case contracts.IsItemFailure(err):
		r.recorder.ObservePut(PutRejected)
		log.WithError(err).Error("Snapshot write rejected")
		return &contracts.ItemFailure{ItemID: item.ID(), Stage: contracts.StagePersist, Error: err.Error()}, nil
	default:
		return nil, err
	}
}

// Score recomputes ranked heat records for asOf from stored observations
// only. With an unchanged store the records are identical on every call.
// An empty items list scores every item in the store.
func (r *Runner) Score(ctx context.Context, asOf time.Time, items []contracts.Item) (*contracts.RunResult, error) {
	if len(items) == 0 {
		ids, err := r.store.Items(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			items = append(items, contracts.ItemFromID(id))
		}
	}
	return r.score(ctx, contracts.Day(asOf), items, stageTimer{})
}

func (r *Runner) score(ctx context.Context, asOf time.Time, items []contracts.Item, timer stageTimer) (*contracts.RunResult, error) {
	result := &contracts.RunResult{
		Records: make([]contracts.HeatRecord, 0, len(items)),
		Metadata: contracts.RunMetadata{
			AsOf:         asOf,
			UniverseSize: len(items),
			ScoringHash:  r.scoringHash,
		},
	}

	for _, item := range items {
		rec, err := r.scoreItem(ctx, item, asOf, timer)
		if err != nil {
			return nil, err
		}

		switch {
		case rec.Observation == nil:
			result.Metadata.MissingObservations++
		case rec.Metrics.InsufficientHistory():
			result.Metadata.InsufficientHistory++
		}
		if rec.Heat != nil {
			result.Metadata.Scored++
		}
		if rec.Hot {
			result.Metadata.HotCount++
		}
		result.Records = append(result.Records, rec)
	}

	start := time.Now()
	heat.Rank(result.Records)
	timer.add(contracts.StageRank, start)

	result.Metadata.StageDurations = timer
	return result, nil
}

func (r *Runner) scoreItem(ctx context.Context, item contracts.Item, asOf time.Time, timer stageTimer) (contracts.HeatRecord, error) {
	id := item.ID()
	rec := contracts.HeatRecord{Item: item, ItemID: id, AsOf: asOf}

	start := time.Now()
	today, err := r.store.Get(ctx, id, asOf)
	if err != nil {
		return rec, fmt.Errorf("%s %s: %w", contracts.StageReconstruct, id, err)
	}
	if today == nil {
		timer.add(contracts.StageReconstruct, start)
		rec.Warnings = []string{contracts.WarnNoObservation}
		r.logger.WithItem(id).WithAsOf(asOf).Warn("No observation stored, record left null")
		return rec, nil
	}
	rec.Observation = today

	s, err := r.reconstructor.Reconstruct(ctx, id, asOf, r.lookbackDays)
	if err != nil {
		return rec, fmt.Errorf("%s %s: %w", contracts.StageReconstruct, id, err)
	}
	start = timer.add(contracts.StageReconstruct, start)

	rec.Metrics = r.momentum.Calculate(s, today)
	rec.Warnings = append(rec.Warnings, rec.Metrics.Warnings...)
	start = timer.add(contracts.StageMomentum, start)

	r.composer.Compose(&rec)
	start = timer.add(contracts.StageCompose, start)

	err = r.profit.Apply(&rec)
	timer.add(contracts.StageOverlay, start)
	if err != nil {
		return rec, fmt.Errorf("%s %s: %w", contracts.StageOverlay, id, err)
	}

	return rec, nil
}

// stageTimer sums the time spent per stage
type stageTimer map[contracts.Stage]time.Duration

// add charges the time since start to stage and returns now, the start of
// the next stage
func (t stageTimer) add(stage contracts.Stage, start time.Time) time.Time {
	now := time.Now()
	t[stage] += now.Sub(start)
	return now
}

// Replay scores every day in [from, to]. Used for backtesting.
func (r *Runner) Replay(ctx context.Context, from, to time.Time, items []contracts.Item) ([]*contracts.RunResult, error) {
	from, to = contracts.Day(from), contracts.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("replay range is empty: %s > %s",
			from.Format(contracts.DateLayout), to.Format(contracts.DateLayout))
	}

	var results []*contracts.RunResult
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.Score(ctx, d, items)
		if err != nil {
			return results, fmt.Errorf("replay %s: %w", d.Format(contracts.DateLayout), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// withStore returns a shallow copy of r reading from store
func (r *Runner) withStore(store contracts.SnapshotStore) *Runner {
	c := *r
	c.store = store
	c.reconstructor = series.NewReconstructor(store)
	return &c
}

type nopRecorder struct{}

func (nopRecorder) ObservePut(string)                 {}
func (nopRecorder) ObserveRun(contracts.RunMetadata) {}
