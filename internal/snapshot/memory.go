package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/watchheat/internal/contracts"
)

// MemoryStore keeps snapshots in process memory. Each item has its own
// lock, so a write for one item never blocks a read of another. Used by
// tests and dry runs.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*itemShard
}

type itemShard struct {
	mu   sync.RWMutex
	days map[time.Time]*contracts.Observation
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*itemShard)}
}

func (s *MemoryStore) shard(itemID string, create bool) *itemShard {
	s.mu.RLock()
	sh, ok := s.items[itemID]
	s.mu.RUnlock()
	if ok || !create {
		return sh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok = s.items[itemID]; !ok {
		sh = &itemShard{days: make(map[time.Time]*contracts.Observation)}
		s.items[itemID] = sh
	}
	return sh
}

// Put implements contracts.SnapshotStore
func (s *MemoryStore) Put(ctx context.Context, obs *contracts.Observation, today time.Time) error {
	if err := checkPut(obs, today); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storageErr("put", err)
	}

	sh := s.shard(obs.ItemID, true)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	action, err := decidePut(sh.days[obs.Date], obs, today)
	if err != nil {
		return err
	}
	if action != actionNoop {
		sh.days[obs.Date] = obs.Clone()
	}
	return nil
}

// Get implements contracts.SnapshotStore
func (s *MemoryStore) Get(ctx context.Context, itemID string, date time.Time) (*contracts.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("get", err)
	}

	sh := s.shard(itemID, false)
	if sh == nil {
		return nil, nil
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.days[contracts.Day(date)].Clone(), nil
}

// Range implements contracts.SnapshotStore
func (s *MemoryStore) Range(ctx context.Context, itemID string, from, to time.Time) ([]*contracts.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("range", err)
	}

	sh := s.shard(itemID, false)
	if sh == nil {
		return nil, nil
	}

	from, to = contracts.Day(from), contracts.Day(to)

	sh.mu.RLock()
	out := make([]*contracts.Observation, 0, len(sh.days))
	for d, obs := range sh.days {
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, obs.Clone())
	}
	sh.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Items implements contracts.SnapshotStore
func (s *MemoryStore) Items(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("items", err)
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}
