package snapshot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/watchheat/internal/contracts"
)

func TestMemoryStore_Contract(t *testing.T) {
	n := 0
	runStoreContract(t, NewMemoryStore(), func() string {
		n++
		return fmt.Sprintf("Test/mem-%03d", n)
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	obs := obsFor("Tudor/79360N", 0, 4200)
	require.NoError(t, store.Put(ctx, obs, at(0)))

	*obs.Listings = 99
	got, err := store.Get(ctx, "Tudor/79360N", at(0))
	require.NoError(t, err)
	assert.Equal(t, 10, *got.Listings)

	*got.Listings = 77
	again, err := store.Get(ctx, "Tudor/79360N", at(0))
	require.NoError(t, err)
	assert.Equal(t, 10, *again.Listings)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, obsFor("Tudor/79360N", 0, 4200), at(0))
	assert.ErrorIs(t, err, contracts.ErrStorage)

	_, err = store.Range(ctx, "Tudor/79360N", at(0), at(1))
	assert.ErrorIs(t, err, contracts.ErrStorage)
}

func TestDecidePut(t *testing.T) {
	existing := obsFor("A/1", 3, 100)

	tests := []struct {
		name     string
		existing *contracts.Observation
		obs      *contracts.Observation
		today    int
		want     putAction
		wantErr  error
	}{
		{"insert", nil, obsFor("A/1", 3, 100), 3, actionInsert, nil},
		{"identical today", existing, obsFor("A/1", 3, 100), 3, actionNoop, nil},
		{"identical past", existing, obsFor("A/1", 3, 100), 5, actionNoop, nil},
		{"changed today", existing, obsFor("A/1", 3, 101), 3, actionUpdate, nil},
		{"changed past", existing, obsFor("A/1", 3, 101), 4, actionNoop, contracts.ErrDuplicateWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decidePut(tt.existing, tt.obs, at(tt.today))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
