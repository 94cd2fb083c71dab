package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/watchheat/internal/contracts"
)

var day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func at(days int) time.Time {
	return day0.AddDate(0, 0, days)
}

func obsFor(item string, days int, price float64) *contracts.Observation {
	return &contracts.Observation{
		ItemID:       item,
		Date:         at(days),
		Price:        price,
		Listings:     contracts.Ptr(10),
		DaysOnMarket: contracts.Ptr(30.0),
	}
}

// runStoreContract exercises the behaviour every SnapshotStore must share.
// newItem returns an item id unused by previous subtests.
func runStoreContract(t *testing.T, store contracts.SnapshotStore, newItem func() string) {
	ctx := context.Background()

	t.Run("get absent", func(t *testing.T) {
		got, err := store.Get(ctx, newItem(), at(0))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then get", func(t *testing.T) {
		item := newItem()
		obs := obsFor(item, 0, 1000)
		obs.DemandCount = contracts.Ptr(7)
		require.NoError(t, store.Put(ctx, obs, at(0)))

		got, err := store.Get(ctx, item, at(0))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, obs.Equal(got), "got %+v", got)
	})

	t.Run("null fields round trip", func(t *testing.T) {
		item := newItem()
		obs := &contracts.Observation{ItemID: item, Date: at(0), Price: 99.5}
		require.NoError(t, store.Put(ctx, obs, at(0)))

		got, err := store.Get(ctx, item, at(0))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.Listings)
		assert.Nil(t, got.DaysOnMarket)
		assert.Nil(t, got.DemandCount)
	})

	t.Run("same day overwrite", func(t *testing.T) {
		item := newItem()
		require.NoError(t, store.Put(ctx, obsFor(item, 5, 1000), at(5)))
		require.NoError(t, store.Put(ctx, obsFor(item, 5, 1100), at(5)))

		got, err := store.Get(ctx, item, at(5))
		require.NoError(t, err)
		assert.Equal(t, 1100.0, got.Price)
	})

	t.Run("past day immutable", func(t *testing.T) {
		item := newItem()
		require.NoError(t, store.Put(ctx, obsFor(item, 1, 1000), at(1)))

		err := store.Put(ctx, obsFor(item, 1, 1200), at(2))
		require.Error(t, err)
		assert.ErrorIs(t, err, contracts.ErrDuplicateWrite)

		var dup *contracts.DuplicateWriteError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, 1000.0, dup.Existing.Price)

		got, err := store.Get(ctx, item, at(1))
		require.NoError(t, err)
		assert.Equal(t, 1000.0, got.Price)
	})

	t.Run("identical past write is a no-op", func(t *testing.T) {
		item := newItem()
		require.NoError(t, store.Put(ctx, obsFor(item, 1, 1000), at(1)))
		assert.NoError(t, store.Put(ctx, obsFor(item, 1, 1000), at(9)))
	})

	t.Run("future date rejected", func(t *testing.T) {
		item := newItem()
		err := store.Put(ctx, obsFor(item, 3, 1000), at(2))
		assert.ErrorIs(t, err, contracts.ErrFutureDate)

		got, err := store.Get(ctx, item, at(3))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalid rejected", func(t *testing.T) {
		item := newItem()
		err := store.Put(ctx, obsFor(item, 0, 0), at(0))
		assert.ErrorIs(t, err, contracts.ErrInvalidObservation)
	})

	t.Run("range ascending with gaps", func(t *testing.T) {
		item := newItem()
		for _, d := range []int{30, 0, 14, 20} {
			require.NoError(t, store.Put(ctx, obsFor(item, d, 100+float64(d)), at(30)))
		}

		got, err := store.Range(ctx, item, at(0), at(20))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, at(0), got[0].Date)
		assert.Equal(t, at(14), got[1].Date)
		assert.Equal(t, at(20), got[2].Date)

		got, err = store.Range(ctx, item, at(21), at(29))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("items listed", func(t *testing.T) {
		item := newItem()
		require.NoError(t, store.Put(ctx, obsFor(item, 0, 10), at(0)))

		ids, err := store.Items(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, item)
		assert.IsIncreasing(t, ids)
	})

	t.Run("parallel items", func(t *testing.T) {
		items := make([]string, 8)
		for i := range items {
			items[i] = newItem()
		}

		var wg sync.WaitGroup
		for _, item := range items {
			wg.Add(1)
			go func(item string) {
				defer wg.Done()
				for d := 0; d < 10; d++ {
					assert.NoError(t, store.Put(ctx, obsFor(item, d, float64(100+d)), at(9)))
				}
			}(item)
		}
		wg.Wait()

		for _, item := range items {
			got, err := store.Range(ctx, item, at(0), at(9))
			require.NoError(t, err)
			assert.Len(t, got, 10, fmt.Sprintf("item %s", item))
		}
	})
}
