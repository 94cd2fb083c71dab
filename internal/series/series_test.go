package series

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/snapshot"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(d int) time.Time { return day0.AddDate(0, 0, d) }

func point(d int, price float64) *contracts.Observation {
	return &contracts.Observation{ItemID: "A/1", Date: at(d), Price: price}
}

type fakeReader struct {
	points []*contracts.Observation
	err    error
	from   time.Time
	to     time.Time
}

func (f *fakeReader) Range(_ context.Context, _ string, from, to time.Time) ([]*contracts.Observation, error) {
	f.from, f.to = from, to
	return f.points, f.err
}

func TestReconstruct_Window(t *testing.T) {
	reader := &fakeReader{}
	r := NewReconstructor(reader)

	_, err := r.Reconstruct(context.Background(), "A/1", at(90).Add(5*time.Hour), 90)
	require.NoError(t, err)
	assert.Equal(t, at(0), reader.from)
	assert.Equal(t, at(90), reader.to)
}

func TestReconstruct_SortsAndDeduplicates(t *testing.T) {
	dupe := point(5, 150)
	reader := &fakeReader{points: []*contracts.Observation{
		point(10, 110), point(5, 105), dupe, point(0, 100),
		{ItemID: "B/2", Date: at(3), Price: 1},
		point(40, 999),
	}}

	s, err := NewReconstructor(reader).Reconstruct(context.Background(), "A/1", at(30), 30)
	require.NoError(t, err)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, at(0), s.Points[0].Date)
	assert.Same(t, dupe, s.Points[1])
	assert.Equal(t, at(10), s.Points[2].Date)
}

func TestReconstruct_PropagatesStoreError(t *testing.T) {
	storeErr := &contracts.StorageError{Op: "range", Err: errors.New("disk gone")}
	_, err := NewReconstructor(&fakeReader{err: storeErr}).Reconstruct(context.Background(), "A/1", at(0), 90)
	assert.ErrorIs(t, err, contracts.ErrStorage)
}

func TestReconstruct_NegativeLookback(t *testing.T) {
	_, err := NewReconstructor(&fakeReader{}).Reconstruct(context.Background(), "A/1", at(0), -1)
	assert.Error(t, err)
}

func TestReconstruct_FromMemoryStore(t *testing.T) {
	store := snapshot.NewMemoryStore()
	ctx := context.Background()
	for _, d := range []int{0, 14, 30} {
		require.NoError(t, store.Put(ctx, point(d, 100+float64(d)), at(30)))
	}

	s, err := NewReconstructor(store).Reconstruct(ctx, "A/1", at(30), 20)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, at(14), s.Points[0].Date)
}

func TestAnchorAtOrBefore(t *testing.T) {
	missing := &contracts.Observation{ItemID: "A/1", Date: at(12), Price: 112}
	s := New("A/1", at(30), []*contracts.Observation{
		{ItemID: "A/1", Date: at(0), Price: 100, Listings: contracts.Ptr(20)},
		{ItemID: "A/1", Date: at(7), Price: 107, Listings: contracts.Ptr(18)},
		missing,
		{ItemID: "A/1", Date: at(30), Price: 130, Listings: contracts.Ptr(10)},
	})

	tests := []struct {
		name     string
		date     int
		acc      Accessor
		wantDate time.Time
		wantVal  float64
		wantOK   bool
	}{
		{"exact date", 7, Price, at(7), 107, true},
		{"nearest before", 10, Price, at(7), 107, true},
		{"skips null field", 12, Listings, at(7), 18, true},
		{"price on gap day", 13, Price, at(12), 112, true},
		{"before first point", -1, Price, time.Time{}, 0, false},
		{"no dom anywhere", 30, DaysOnMarket, time.Time{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, v, ok := s.AnchorAtOrBefore(at(tt.date), tt.acc)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, obs)
				return
			}
			assert.Equal(t, tt.wantDate, obs.Date)
			assert.Equal(t, tt.wantVal, v)
		})
	}
}

func TestAnchorAtOrBefore_SkipsNonPositivePrice(t *testing.T) {
	s := New("A/1", at(30), []*contracts.Observation{
		point(0, 100),
		{ItemID: "A/1", Date: at(5), Price: 0},
	})

	obs, v, ok := s.AnchorAtOrBefore(at(10), Price)
	require.True(t, ok)
	assert.Equal(t, at(0), obs.Date)
	assert.Equal(t, 100.0, v)
}

func TestBetween(t *testing.T) {
	s := New("A/1", at(30), []*contracts.Observation{point(0, 1), point(10, 2), point(20, 3), point(30, 4)})

	got := s.Between(at(5), at(20))
	require.Len(t, got, 2)
	assert.Equal(t, at(10), got[0].Date)
	assert.Equal(t, at(20), got[1].Date)

	assert.Empty(t, s.Between(at(21), at(29)))
}
