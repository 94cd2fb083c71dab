package series

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/watchheat/internal/contracts"
)

// RangeReader is the part of the snapshot store the reconstructor needs
type RangeReader interface {
	Range(ctx context.Context, itemID string, from, to time.Time) ([]*contracts.Observation, error)
}

// Accessor extracts one field from an observation. ok is false when the
// field is unknown or unusable as an anchor.
type Accessor func(obs *contracts.Observation) (value float64, ok bool)

// Field accessors shared by every delta computation
var (
	Price Accessor = func(o *contracts.Observation) (float64, bool) {
		return o.Price, o.Price > 0
	}
	Listings Accessor = func(o *contracts.Observation) (float64, bool) {
		if o.Listings == nil {
			return 0, false
		}
		return float64(*o.Listings), true
	}
	DaysOnMarket Accessor = func(o *contracts.Observation) (float64, bool) {
		if o.DaysOnMarket == nil {
			return 0, false
		}
		return *o.DaysOnMarket, true
	}
	Demand Accessor = func(o *contracts.Observation) (float64, bool) {
		if o.DemandCount == nil {
			return 0, false
		}
		return float64(*o.DemandCount), true
	}
)

// Series is the ascending, duplicate-free history of one item inside a
// lookback window ending at AsOf.
type Series struct {
	ItemID string
	AsOf   time.Time
	Points []*contracts.Observation
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.Points)
}

// AnchorAtOrBefore returns the latest observation dated on or before date
// whose field (per acc) is usable, with that field's value. Older points
// are tried when a newer one has no usable value; nothing is interpolated.
func (s Series) AnchorAtOrBefore(date time.Time, acc Accessor) (*contracts.Observation, float64, bool) {
	date = contracts.Day(date)
	// first index strictly after date
	i := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Date.After(date) })
	for i--; i >= 0; i-- {
		if v, ok := acc(s.Points[i]); ok {
			return s.Points[i], v, true
		}
	}
	return nil, 0, false
}

// Between returns the points dated in [from, to]
func (s Series) Between(from, to time.Time) []*contracts.Observation {
	from, to = contracts.Day(from), contracts.Day(to)
	lo := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].Date.Before(from) })
	hi := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Date.After(to) })
	if lo >= hi {
		return nil
	}
	return s.Points[lo:hi]
}

// Reconstructor assembles series from the snapshot store. It keeps no cache.
type Reconstructor struct {
	store RangeReader
}

// NewReconstructor creates a reconstructor reading from store
func NewReconstructor(store RangeReader) *Reconstructor {
	return &Reconstructor{store: store}
}

// Reconstruct returns the observations of itemID in [asOf-lookbackDays, asOf].
func (r *Reconstructor) Reconstruct(ctx context.Context, itemID string, asOf time.Time, lookbackDays int) (Series, error) {
	if lookbackDays < 0 {
		return Series{}, fmt.Errorf("lookback must be >= 0, got %d", lookbackDays)
	}

	asOf = contracts.Day(asOf)
	from := asOf.AddDate(0, 0, -lookbackDays)

	points, err := r.store.Range(ctx, itemID, from, asOf)
	if err != nil {
		return Series{}, fmt.Errorf("reconstruct %s: %w", itemID, err)
	}

	return New(itemID, asOf, normalize(points, itemID, from, asOf)), nil
}

// New builds a series from points that are already ascending and unique.
func New(itemID string, asOf time.Time, points []*contracts.Observation) Series {
	return Series{ItemID: itemID, AsOf: contracts.Day(asOf), Points: points}
}

// normalize sorts by date, keeps the last entry of any repeated date and
// drops points outside [from, to] or belonging to another item.
func normalize(points []*contracts.Observation, itemID string, from, to time.Time) []*contracts.Observation {
	kept := make([]*contracts.Observation, 0, len(points))
	for _, p := range points {
		if p == nil || p.ItemID != itemID || p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		kept = append(kept, p)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Date.Before(kept[j].Date) })

	out := kept[:0]
	for _, p := range kept {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
