package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/watchheat/internal/acquisition"
	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/external/chrono24"
	"github.com/wonny/watchheat/internal/external/ebay"
	"github.com/wonny/watchheat/internal/external/watchcharts"
	"github.com/wonny/watchheat/internal/heat"
	"github.com/wonny/watchheat/internal/metrics"
	"github.com/wonny/watchheat/internal/pipeline"
	"github.com/wonny/watchheat/internal/snapshot"
	"github.com/wonny/watchheat/internal/universe"
	"github.com/wonny/watchheat/pkg/config"
	"github.com/wonny/watchheat/pkg/database"
	"github.com/wonny/watchheat/pkg/httputil"
	"github.com/wonny/watchheat/pkg/logger"
	"github.com/wonny/watchheat/pkg/redis"
)

// keyPrefix namespaces every Redis key of this service
const keyPrefix = "watchheat"

// app holds the process-wide dependencies shared by the commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB // nil with the memory backend
	redis   *redis.Client
	store   contracts.SnapshotStore
	metrics *metrics.Registry
	weights heat.Weights
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	switch marketSource {
	case "":
	case "watchcharts", "chrono24":
		cfg.MarketSource = marketSource
	default:
		return nil, fmt.Errorf("--market-source must be watchcharts or chrono24, got %q", marketSource)
	}

	a := &app{
		cfg:     cfg,
		log:     logger.New(cfg),
		metrics: metrics.NewRegistry(),
		weights: heat.DefaultWeights(),
	}

	if cfg.Heat.WeightsPath != "" {
		a.weights, err = heat.LoadWeights(cfg.Heat.WeightsPath)
		if err != nil {
			return nil, fmt.Errorf("load heat weights: %w", err)
		}
		a.log.WithField("path", cfg.Heat.WeightsPath).Info("Loaded heat weights")
	}

	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	switch cfg.StoreBackend {
	case "memory":
		a.log.Warn("Using in-memory snapshot store; nothing will be persisted")
		a.store = snapshot.NewMemoryStore()
	default:
		a.db, err = database.New(ctx, cfg.Database)
		if err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.store = snapshot.NewPostgresStore(a.db.Pool)
	}

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// limiter shares one quota across processes when Redis is on, else
// throttles in-process
func (a *app) limiter(name string, perSecond int) httputil.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if a.redis.Enabled() {
		return redis.NewRateLimiter(a.redis, keyPrefix).Bind(redis.PerSecond(name, perSecond))
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// intervalLimiter allows one request per interval
func (a *app) intervalLimiter(name string, interval time.Duration) httputil.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if a.redis.Enabled() {
		return redis.NewRateLimiter(a.redis, keyPrefix).Bind(redis.Every(name, interval))
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// acquirer returns the fixture acquirer when fixturesPath is set, else the
// market source + eBay composite
func (a *app) acquirer(fixturesPath string) (contracts.Acquirer, error) {
	if fixturesPath != "" {
		static, err := acquisition.LoadFixtures(fixturesPath)
		if err != nil {
			return nil, err
		}
		a.log.WithField("fixtures", static.Len()).Info("Using fixture acquirer")
		return static, nil
	}

	market, err := a.marketSource()
	if err != nil {
		return nil, err
	}

	var demand acquisition.DemandSource
	if a.cfg.Ebay.OAuthToken != "" {
		ebHTTP := httputil.New(a.log).
			WithHeader("Authorization", "Bearer "+a.cfg.Ebay.OAuthToken).
			WithLimiter(a.limiter("ebay", a.cfg.Ebay.RateLimit)).
			WithBreaker("ebay", 5, time.Minute)
		demand = ebay.NewClient(ebHTTP, a.cfg.Ebay.BaseURL, a.log)
	} else {
		a.log.Warn("EBAY_OAUTH_TOKEN not set; demand counts will be null")
	}

	return acquisition.NewComposite(market, demand, a.log), nil
}

// marketSource builds the price and supply source named by MARKET_SOURCE
func (a *app) marketSource() (acquisition.MarketSource, error) {
	switch a.cfg.MarketSource {
	case "chrono24":
		hc := httputil.New(a.log).
			WithHeader("User-Agent", a.cfg.Chrono24.UserAgent).
			WithLimiter(a.intervalLimiter("chrono24", a.cfg.Chrono24.RequestInterval)).
			WithBreaker("chrono24", 5, time.Minute)
		a.log.Warn("Using Chrono24 market source; days on market will be null")
		return chrono24.NewClient(hc, a.cfg.Chrono24.BaseURL, a.log), nil

	default:
		if a.cfg.WatchCharts.APIKey == "" {
			return nil, fmt.Errorf("WATCHCHARTS_API_KEY is required (or pass --fixtures or --market-source chrono24)")
		}
		hc := httputil.New(a.log).
			WithHeader("x-api-key", a.cfg.WatchCharts.APIKey).
			WithLimiter(a.limiter("watchcharts", a.cfg.WatchCharts.RateLimit)).
			WithBreaker("watchcharts", 5, time.Minute)
		return watchcharts.NewClient(hc, a.cfg.WatchCharts.BaseURL, a.log).
			WithCache(redis.NewCache(a.redis, keyPrefix)), nil
	}
}

func (a *app) runner(acq contracts.Acquirer) *pipeline.Runner {
	return pipeline.NewRunner(a.store, acq, a.cfg.Heat, a.cfg.Profit, a.log).
		WithWeights(a.weights).
		WithLocker(redis.NewLocker(a.redis, keyPrefix)).
		WithRecorder(a.metrics)
}

func (a *app) universe() ([]contracts.Item, error) {
	items, err := universe.Load(a.cfg.UniversePath)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(map[string]interface{}{
		"path":  a.cfg.UniversePath,
		"items": len(items),
	}).Info("Loaded universe")
	return items, nil
}

// parseDate parses --date style flags; empty means today
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return contracts.Day(time.Now()), nil
	}
	return contracts.ParseDay(s)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
