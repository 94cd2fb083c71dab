package heat

import (
	"math"
	"sort"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/config"
	"github.com/wonny/watchheat/pkg/logger"
)

// Weights of the six heat components. They need not sum to one: a score
// divides by the sum of the weights whose component is available.
type Weights struct {
	Delta14 float64 `json:"delta_14" yaml:"delta_14"`
	Delta30 float64 `json:"delta_30" yaml:"delta_30"`
	DOM     float64 `json:"dom" yaml:"dom"`
	Supply  float64 `json:"supply" yaml:"supply"`
	Z90     float64 `json:"z90" yaml:"z90"`
	Demand  float64 `json:"demand" yaml:"demand"`
}

// DefaultWeights returns the production weights
func DefaultWeights() Weights {
	return Weights{
		Delta14: 0.35,
		Delta30: 0.25,
		DOM:     0.20,
		Supply:  0.20,
		Z90:     0.10,
		Demand:  0.10,
	}
}

// percentScale maps a fractional move onto the score scale: a 10% move is 1.0
const percentScale = 10.0

// Components are the normalised inputs of the score. Nil means unavailable.
type Components struct {
	Delta14 *float64 `json:"delta_14"`
	Delta30 *float64 `json:"delta_30"`
	DOM     *float64 `json:"dom"`
	Supply  *float64 `json:"supply"`
	Z90     *float64 `json:"z90"`
	Demand  *float64 `json:"demand"`
}

// Available counts the non-nil components
func (c Components) Available() int {
	n := 0
	for _, v := range []*float64{c.Delta14, c.Delta30, c.DOM, c.Supply, c.Z90, c.Demand} {
		if v != nil {
			n++
		}
	}
	return n
}

// Normalize turns raw metrics into signed score contributions. Falling
// supply and days-on-market are bullish, so their relative moves are negated.
func Normalize(m contracts.MomentumMetrics) Components {
	var c Components

	if m.Delta14 != nil {
		c.Delta14 = ptr(*m.Delta14 * percentScale)
	}
	if m.Delta30 != nil {
		c.Delta30 = ptr(*m.Delta30 * percentScale)
	}
	if m.SupplyDelta != nil && m.SupplyBase != nil && *m.SupplyBase != 0 {
		c.Supply = ptr(-float64(*m.SupplyDelta) / float64(*m.SupplyBase) * percentScale)
	}
	if m.DOMDelta != nil && m.DOMBase != nil && *m.DOMBase != 0 {
		c.DOM = ptr(-*m.DOMDelta / *m.DOMBase * percentScale)
	}
	if m.Z90 != nil {
		c.Z90 = ptr(clamp(*m.Z90, -3, 3) / 3)
	}
	if m.DemandMomentum != nil {
		c.Demand = ptr(clamp(*m.DemandMomentum, -1, 1))
	}

	return c
}

// Composer turns metrics into a heat score and a hot flag
type Composer struct {
	weights     Weights
	threshold   float64
	minListings int
	logger      *logger.Logger
}

// NewComposer creates a composer with the default weights
func NewComposer(cfg config.HeatConfig, log *logger.Logger) *Composer {
	return NewComposerWithWeights(cfg, DefaultWeights(), log)
}

// NewComposerWithWeights creates a composer with custom weights
func NewComposerWithWeights(cfg config.HeatConfig, w Weights, log *logger.Logger) *Composer {
	if log == nil {
		log = logger.Nop()
	}
	return &Composer{
		weights:     w,
		threshold:   cfg.Threshold,
		minListings: cfg.MinListings,
		logger:      log,
	}
}

// Score is Σ wᵢnᵢ / Σ wᵢ over the available components, or nil when none is available.
func (c *Composer) Score(m contracts.MomentumMetrics) *float64 {
	n := Normalize(m)

	var sum, weightSum float64
	add := func(w float64, v *float64) {
		if v == nil {
			return
		}
		sum += w * *v
		weightSum += w
	}
	add(c.weights.Delta14, n.Delta14)
	add(c.weights.Delta30, n.Delta30)
	add(c.weights.DOM, n.DOM)
	add(c.weights.Supply, n.Supply)
	add(c.weights.Z90, n.Z90)
	add(c.weights.Demand, n.Demand)

	if weightSum == 0 {
		return nil
	}
	return ptr(sum / weightSum)
}

// IsHot applies the threshold and the liquidity floor. Unknown listings
// never pass the floor.
func (c *Composer) IsHot(score *float64, listings *int) bool {
	return score != nil &&
		*score >= c.threshold &&
		listings != nil &&
		*listings >= c.minListings
}

// Compose fills Heat, Hot and the related warnings of rec from rec.Metrics
// and rec.Observation.
func (c *Composer) Compose(rec *contracts.HeatRecord) {
	n := Normalize(rec.Metrics)
	log := c.logger.WithItem(rec.ItemID).WithAsOf(rec.AsOf)

	// a relative move off a zero base is undefined, so the component is left out
	if rec.Metrics.SupplyDelta != nil && n.Supply == nil {
		rec.Warnings = append(rec.Warnings, contracts.WarnSupplyBaseZero)
		log.WithField("supply_delta", *rec.Metrics.SupplyDelta).Info("Supply component skipped: zero listings base")
	}
	if rec.Metrics.DOMDelta != nil && n.DOM == nil {
		rec.Warnings = append(rec.Warnings, contracts.WarnDOMBaseZero)
		log.WithField("dom_delta", *rec.Metrics.DOMDelta).Info("DOM component skipped: zero days-on-market base")
	}

	rec.Heat = c.Score(rec.Metrics)
	listings := rec.Listings()
	rec.Hot = c.IsHot(rec.Heat, listings)

	if rec.Heat == nil {
		rec.Warnings = append(rec.Warnings, contracts.WarnNoHeat)
		if n.Available() > 0 {
			rec.Warnings = append(rec.Warnings, contracts.WarnZeroWeights)
			log.Warn("Every available component has weight zero")
		}
		return
	}
	if *rec.Heat >= c.threshold && !rec.Hot {
		code := contracts.WarnBelowLiquidity
		if listings == nil {
			code = contracts.WarnNoListings
		}
		rec.Warnings = append(rec.Warnings, code)
		log.WithField("heat", *rec.Heat).
			Info("Heat above threshold but liquidity gate failed")
	}
}

// Rank sorts records in place: hot first, then by heat descending with
// nil scores last, then by item id.
func Rank(records []contracts.HeatRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Hot != b.Hot {
			return a.Hot
		}
		switch {
		case a.Heat != nil && b.Heat == nil:
			return true
		case a.Heat == nil && b.Heat != nil:
			return false
		case a.Heat != nil && b.Heat != nil && *a.Heat != *b.Heat:
			return *a.Heat > *b.Heat
		}
		return a.ItemID < b.ItemID
	})
}

func ptr(v float64) *float64 {
	return &v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
