package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/logger"
)

// maxSnapshotRange bounds one snapshot query
const maxSnapshotRange = 3 * 366

// SnapshotHandler serves stored observations
type SnapshotHandler struct {
	store  contracts.SnapshotStore
	now    func() time.Time
	logger *logger.Logger
}

// NewSnapshotHandler creates a snapshot handler
func NewSnapshotHandler(store contracts.SnapshotStore, log *logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{store: store, now: time.Now, logger: log}
}

// GetSnapshots returns one item's observations in [from, to].
// to defaults to today, from to 90 days before to.
// GET /api/items/{brand}/{reference}/snapshots?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *SnapshotHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	item := contracts.Item{Brand: vars["brand"], Reference: vars["reference"]}

	to, err := parseDay(r, "to", contracts.Day(h.now()))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := parseDay(r, "from", to.AddDate(0, 0, -90))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if from.After(to) {
		respondError(w, http.StatusBadRequest, "from is after to")
		return
	}
	if to.Sub(from) > maxSnapshotRange*24*time.Hour {
		respondError(w, http.StatusBadRequest, "range too large")
		return
	}

	observations, err := h.store.Range(ctx, item.ID(), from, to)
	if err != nil {
		h.logger.WithError(err).WithItem(item.ID()).Error("Failed to read snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to read snapshots")
		return
	}
	if observations == nil {
		observations = []*contracts.Observation{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"item_id":      item.ID(),
		"from":         from.Format(contracts.DateLayout),
		"to":           to.Format(contracts.DateLayout),
		"count":        len(observations),
		"observations": observations,
	})
}

// ListItems returns every item id with stored observations
// GET /api/items
func (h *SnapshotHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.Items(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list items")
		respondError(w, http.StatusInternalServerError, "Failed to list items")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(ids),
		"items": ids,
	})
}
