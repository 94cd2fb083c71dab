package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Warning codes attached to a HeatRecord. Every null metric and every
// skipped input shows up here.
const (
	WarnNoObservation  = "no_observation"
	WarnNoDelta7       = "insufficient_history:delta_7"
	WarnNoDelta14      = "insufficient_history:delta_14"
	WarnNoDelta30      = "insufficient_history:delta_30"
	WarnNoZ90          = "insufficient_history:z90"
	WarnNoSupplyDelta  = "insufficient_history:supply_delta"
	WarnNoDOMDelta     = "insufficient_history:dom_delta"
	WarnNoDemand       = "insufficient_history:demand_momentum"
	WarnSupplyBaseZero = "supply_base_zero"
	WarnDOMBaseZero    = "dom_base_zero"
	WarnNoHeat         = "no_heat_score"
	WarnZeroWeights    = "available_components_zero_weight"
	WarnNoListings     = "listings_unknown"
	WarnBelowLiquidity = "below_min_listings"
	WarnBidLowNull     = "max_bid_low_unprofitable"
	WarnBidHighNull    = "max_bid_high_unprofitable"
)

// MomentumMetrics are the derived statistics of one item on one as-of date.
// Deltas are fractions (0.10 = +10%). Nil means not enough history.
type MomentumMetrics struct {
	Delta7         *float64 `json:"delta_7"`
	Delta14        *float64 `json:"delta_14"`
	Delta30        *float64 `json:"delta_30"`
	Z90            *float64 `json:"z90"`
	SupplyDelta    *int     `json:"supply_delta"`
	DOMDelta       *float64 `json:"dom_delta"`
	DemandMomentum *float64 `json:"demand_momentum"`

	// anchor values behind SupplyDelta and DOMDelta
	SupplyBase *int     `json:"supply_base"`
	DOMBase    *float64 `json:"dom_base"`

	Warnings []string `json:"warnings,omitempty"`
}

// InsufficientHistory reports whether any metric is null
func (m *MomentumMetrics) InsufficientHistory() bool {
	return len(m.Warnings) > 0
}

// HeatRecord is the per-item output of one scoring pass. It is never
// persisted; it can always be recomputed from stored observations.
type HeatRecord struct {
	Item        Item                `json:"item"`
	ItemID      string              `json:"item_id"`
	AsOf        time.Time           `json:"as_of"`
	Observation *Observation        `json:"observation"`
	Metrics     MomentumMetrics     `json:"metrics"`
	Heat        *float64            `json:"heat"`
	Hot         bool                `json:"hot"`
	MaxBidLow   decimal.NullDecimal `json:"max_bid_low"`
	MaxBidHigh  decimal.NullDecimal `json:"max_bid_high"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// Price returns today's price or nil
func (r *HeatRecord) Price() *float64 {
	if r.Observation == nil {
		return nil
	}
	p := r.Observation.Price
	return &p
}

// Listings returns today's listing count or nil
func (r *HeatRecord) Listings() *int {
	if r.Observation == nil {
		return nil
	}
	return r.Observation.Listings
}
