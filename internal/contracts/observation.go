package contracts

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used in keys, logs and reports.
const DateLayout = "2006-01-02"

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC calendar day
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Item is one tracked catalog reference in the universe
type Item struct {
	Brand       string `json:"brand" yaml:"brand"`
	Reference   string `json:"reference" yaml:"reference"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name"`
}

// ID is the store key of the item: "<brand>/<reference>".
func (i Item) ID() string {
	return i.Brand + "/" + i.Reference
}

// ItemFromID splits a store key back into brand and reference
func ItemFromID(id string) Item {
	brand, ref, ok := strings.Cut(id, "/")
	if !ok {
		return Item{Reference: id}
	}
	return Item{Brand: brand, Reference: ref}
}

// Name returns the display name, falling back to the id
func (i Item) Name() string {
	if strings.TrimSpace(i.DisplayName) != "" {
		return i.DisplayName
	}
	return i.ID()
}

// Observation is one day of market data for one item.
// Nil pointer fields mean "unknown", never zero.
type Observation struct {
	ItemID       string    `json:"item_id"`
	Date         time.Time `json:"date"`
	Price        float64   `json:"price"`
	Listings     *int      `json:"listings"`
	DaysOnMarket *float64  `json:"days_on_market"`
	DemandCount  *int      `json:"demand_count"`
}

// Validate checks the field invariants of an observation
func (o *Observation) Validate() error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: nil observation", ErrInvalidObservation)
	case strings.TrimSpace(o.ItemID) == "":
		return fmt.Errorf("%w: empty item id", ErrInvalidObservation)
	case o.Date.IsZero():
		return fmt.Errorf("%w: %s: zero date", ErrInvalidObservation, o.ItemID)
	case !o.Date.Equal(Day(o.Date)):
		return fmt.Errorf("%w: %s: date has a time component", ErrInvalidObservation, o.ItemID)
	case !(o.Price > 0):
		return fmt.Errorf("%w: %s: price must be > 0, got %v", ErrInvalidObservation, o.ItemID, o.Price)
	case o.Listings != nil && *o.Listings < 0:
		return fmt.Errorf("%w: %s: negative listings", ErrInvalidObservation, o.ItemID)
	case o.DaysOnMarket != nil && *o.DaysOnMarket < 0:
		return fmt.Errorf("%w: %s: negative days on market", ErrInvalidObservation, o.ItemID)
	case o.DemandCount != nil && *o.DemandCount < 0:
		return fmt.Errorf("%w: %s: negative demand count", ErrInvalidObservation, o.ItemID)
	}
	return nil
}

// Equal reports whether two observations carry the same content
func (o *Observation) Equal(other *Observation) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.ItemID == other.ItemID &&
		o.Date.Equal(other.Date) &&
		o.Price == other.Price &&
		equalPtr(o.Listings, other.Listings) &&
		equalPtr(o.DaysOnMarket, other.DaysOnMarket) &&
		equalPtr(o.DemandCount, other.DemandCount)
}

// Clone returns a deep copy, so stored values cannot be mutated through a returned pointer.
func (o *Observation) Clone() *Observation {
	if o == nil {
		return nil
	}
	c := *o
	c.Listings = clonePtr(o.Listings)
	c.DaysOnMarket = clonePtr(o.DaysOnMarket)
	c.DemandCount = clonePtr(o.DemandCount)
	return &c
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Used for nullable fields.
func Ptr[T any](v T) *T {
	return &v
}

// MarketSnapshot is today's market state of one reference as reported by a
// market source. Nil fields were not reported.
type MarketSnapshot struct {
	SourceID     string // upstream identifier (WatchCharts uuid, Chrono24 search URL)
	Price        *float64
	Listings     *int
	DaysOnMarket *float64
}
