package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/watchheat/internal/api/handlers"
	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/metrics"
	"github.com/wonny/watchheat/internal/pipeline"
	"github.com/wonny/watchheat/internal/snapshot"
	"github.com/wonny/watchheat/pkg/config"
	"github.com/wonny/watchheat/pkg/logger"
)

var day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *snapshot.MemoryStore {
	t.Helper()
	store := snapshot.NewMemoryStore()
	ctx := context.Background()
	for _, o := range []*contracts.Observation{
		{ItemID: "Rolex/126610LV", Date: day0, Price: 100, Listings: contracts.Ptr(10)},
		{ItemID: "Rolex/126610LV", Date: day0.AddDate(0, 0, 14), Price: 110, Listings: contracts.Ptr(10)},
		{ItemID: "Rolex/126610LV", Date: day0.AddDate(0, 0, 30), Price: 121, Listings: contracts.Ptr(10)},
		{ItemID: "Patek Philippe/5711/1A-011", Date: day0.AddDate(0, 0, 30), Price: 120000, Listings: contracts.Ptr(3)},
	} {
		require.NoError(t, store.Put(ctx, o, o.Date))
	}
	return store
}

func newTestRouter(t *testing.T, store contracts.SnapshotStore, scorer handlers.Scorer) http.Handler {
	t.Helper()
	log := logger.Nop()
	if scorer == nil {
		scorer = pipeline.NewRunner(store, nil,
			config.HeatConfig{MinListings: 5, Threshold: 0.75, LookbackDays: 90},
			config.ProfitConfig{TargetMarginLow: 0.08, TargetMarginHigh: 0.10, ListingFeeRate: 0.065, PaymentFeeRate: 0.029},
			log)
	}
	return NewRouter(Routes{
		Heat:      handlers.NewHeatHandler(scorer, nil, nil, log),
		Snapshots: handlers.NewSnapshotHandler(store, log),
		Metrics:   metrics.NewRegistry().Handler(),
	}, log)
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, snapshot.NewMemoryStore(), nil)
	rec, body := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsRoute(t *testing.T) {
	h := newTestRouter(t, snapshot.NewMemoryStore(), nil)
	rec, _ := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestGetHeat(t *testing.T) {
	h := newTestRouter(t, seededStore(t), nil)

	rec, body := get(t, h, "/api/heat/2025-03-31")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	records := body["records"].([]interface{})
	require.Len(t, records, 2)
	first := records[0].(map[string]interface{})
	assert.Equal(t, "Rolex/126610LV", first["item_id"])
	assert.Equal(t, true, first["hot"])

	meta := body["metadata"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["hot_count"])

	rec, body = get(t, h, "/api/heat/2025-03-31?hot=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["records"], 1)
}

func TestGetHeat_BadDate(t *testing.T) {
	h := newTestRouter(t, snapshot.NewMemoryStore(), nil)

	rec, _ := get(t, h, "/api/heat/31-03-2025")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, h, "/api/heat/2999-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, time.Time, []contracts.Item) (*contracts.RunResult, error) {
	return nil, errors.New("db down")
}

func TestGetHeat_ScoreError(t *testing.T) {
	h := newTestRouter(t, snapshot.NewMemoryStore(), failingScorer{})
	rec, body := get(t, h, "/api/heat/2025-03-31")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestGetSnapshots(t *testing.T) {
	h := newTestRouter(t, seededStore(t), nil)

	tests := []struct {
		name   string
		path   string
		status int
		count  float64
	}{
		{"full window", "/api/items/Rolex/126610LV/snapshots?from=2025-03-01&to=2025-03-31", http.StatusOK, 3},
		{"partial window", "/api/items/Rolex/126610LV/snapshots?from=2025-03-10&to=2025-03-20", http.StatusOK, 1},
		{"reference with slash", "/api/items/Patek%20Philippe/5711/1A-011/snapshots?from=2025-03-01&to=2025-03-31", http.StatusOK, 1},
		{"unknown item", "/api/items/Tudor/79360N/snapshots?from=2025-03-01&to=2025-03-31", http.StatusOK, 0},
		{"inverted range", "/api/items/Rolex/126610LV/snapshots?from=2025-03-31&to=2025-03-01", http.StatusBadRequest, 0},
		{"bad date", "/api/items/Rolex/126610LV/snapshots?from=yesterday", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, tt.path)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.count, body["count"])
			}
		})
	}
}

func TestListItems(t *testing.T) {
	h := newTestRouter(t, seededStore(t), nil)
	rec, body := get(t, h, "/api/items")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"Patek Philippe/5711/1A-011", "Rolex/126610LV"}, body["items"])
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
