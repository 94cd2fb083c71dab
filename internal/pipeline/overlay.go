package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/snapshot"
)

// overlayStore sends writes to memory and reads through to base, memory
// winning per date. Dry runs use it so nothing reaches the durable store
// while the put rules still apply against real history.
type overlayStore struct {
	base  contracts.SnapshotStore
	delta *snapshot.MemoryStore
}

func newOverlayStore(base contracts.SnapshotStore) *overlayStore {
	return &overlayStore{base: base, delta: snapshot.NewMemoryStore()}
}

func (s *overlayStore) Put(ctx context.Context, obs *contracts.Observation, today time.Time) error {
	existing, err := s.base.Get(ctx, obs.ItemID, obs.Date)
	if err != nil {
		return err
	}
	// replay the stored row first so the memory layer enforces immutability
	if existing != nil {
		if err := s.delta.Put(ctx, existing, existing.Date); err != nil {
			return err
		}
	}
	return s.delta.Put(ctx, obs, today)
}

func (s *overlayStore) Get(ctx context.Context, itemID string, date time.Time) (*contracts.Observation, error) {
	obs, err := s.delta.Get(ctx, itemID, date)
	if err != nil || obs != nil {
		return obs, err
	}
	return s.base.Get(ctx, itemID, date)
}

func (s *overlayStore) Range(ctx context.Context, itemID string, from, to time.Time) ([]*contracts.Observation, error) {
	base, err := s.base.Range(ctx, itemID, from, to)
	if err != nil {
		return nil, err
	}
	delta, err := s.delta.Range(ctx, itemID, from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[time.Time]*contracts.Observation, len(base)+len(delta))
	for _, o := range base {
		byDate[o.Date] = o
	}
	for _, o := range delta {
		byDate[o.Date] = o
	}

	out := make([]*contracts.Observation, 0, len(byDate))
	for _, o := range byDate {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *overlayStore) Items(ctx context.Context) ([]string, error) {
	base, err := s.base.Items(ctx)
	if err != nil {
		return nil, err
	}
	delta, err := s.delta.Items(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(base)+len(delta))
	var out []string
	for _, id := range append(base, delta...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}
