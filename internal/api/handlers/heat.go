package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/logger"
	"github.com/wonny/watchheat/pkg/redis"
)

// Scorer recomputes ranked heat records from stored observations
type Scorer interface {
	Score(ctx context.Context, asOf time.Time, items []contracts.Item) (*contracts.RunResult, error)
}

// HeatHandler serves ranked heat records for a date
type HeatHandler struct {
	scorer Scorer
	items  []contracts.Item
	cache  *redis.Cache
	now    func() time.Time
	logger *logger.Logger
}

// NewHeatHandler creates a heat handler. items is the universe to score;
// nil scores every item in the store.
func NewHeatHandler(scorer Scorer, items []contracts.Item, cache *redis.Cache, log *logger.Logger) *HeatHandler {
	if cache == nil {
		cache = redis.NewCache(redis.Disabled(), "")
	}
	return &HeatHandler{
		scorer: scorer,
		items:  items,
		cache:  cache,
		now:    time.Now,
		logger: log,
	}
}

// GetHeat returns the ranked records of one as-of date
// GET /api/heat/{date}?hot=true
func (h *HeatHandler) GetHeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := contracts.ParseDay(mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	today := contracts.Day(h.now())
	if asOf.After(today) {
		respondError(w, http.StatusBadRequest, "date is in the future")
		return
	}

	// today's rows may still be rewritten by a same-day re-run
	ttl := redis.TTLDaily
	if asOf.Equal(today) {
		ttl = redis.TTLShort
	}

	var result contracts.RunResult
	err = h.cache.GetOrSet(ctx, redis.HeatKey(asOf.Format(contracts.DateLayout)), &result, ttl, func() (interface{}, error) {
		return h.scorer.Score(ctx, asOf, h.items)
	})
	if err != nil {
		h.logger.WithError(err).WithAsOf(asOf).Error("Failed to score heat")
		respondError(w, http.StatusInternalServerError, "Failed to compute heat scores")
		return
	}

	if r.URL.Query().Get("hot") == "true" {
		hot := result.Records[:0]
		for _, rec := range result.Records {
			if rec.Hot {
				hot = append(hot, rec)
			}
		}
		result.Records = hot
	}

	respondJSON(w, http.StatusOK, result)
}
