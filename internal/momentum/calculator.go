package momentum

import (
	"math"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/series"
	"github.com/wonny/watchheat/pkg/logger"
)

// Horizons in days
const (
	Horizon7  = 7
	Horizon14 = 14
	Horizon30 = 30
	Horizon90 = 90

	// ZClamp bounds the z-score
	ZClamp = 3.0
)

// Calculator derives MomentumMetrics from a series and today's observation.
// It is a pure function of its inputs; the as-of date comes from the series.
type Calculator struct {
	logger *logger.Logger
}

// NewCalculator creates a new momentum calculator
func NewCalculator(log *logger.Logger) *Calculator {
	if log == nil {
		log = logger.Nop()
	}
	return &Calculator{logger: log}
}

// Calculate computes every metric. A metric without two real anchor points
// stays nil and adds a warning.
func (c *Calculator) Calculate(s series.Series, today *contracts.Observation) contracts.MomentumMetrics {
	var m contracts.MomentumMetrics
	if today == nil {
		m.Warnings = []string{
			contracts.WarnNoDelta7, contracts.WarnNoDelta14, contracts.WarnNoDelta30,
			contracts.WarnNoZ90, contracts.WarnNoSupplyDelta, contracts.WarnNoDOMDelta,
			contracts.WarnNoDemand,
		}
		return m
	}

	m.Delta7 = PriceDelta(s, today, Horizon7)
	m.Delta14 = PriceDelta(s, today, Horizon14)
	m.Delta30 = PriceDelta(s, today, Horizon30)
	m.Z90 = ZScore(s, today, Horizon90)
	m.SupplyDelta, m.SupplyBase = SupplyDelta(s, today, Horizon30)
	m.DOMDelta, m.DOMBase = DOMDelta(s, today, Horizon30)
	m.DemandMomentum = DemandMomentum(s, today, Horizon30)

	warn := func(missing bool, code string) {
		if missing {
			m.Warnings = append(m.Warnings, code)
		}
	}
	warn(m.Delta7 == nil, contracts.WarnNoDelta7)
	warn(m.Delta14 == nil, contracts.WarnNoDelta14)
	warn(m.Delta30 == nil, contracts.WarnNoDelta30)
	warn(m.Z90 == nil, contracts.WarnNoZ90)
	warn(m.SupplyDelta == nil, contracts.WarnNoSupplyDelta)
	warn(m.DOMDelta == nil, contracts.WarnNoDOMDelta)
	warn(m.DemandMomentum == nil, contracts.WarnNoDemand)

	if len(m.Warnings) > 0 {
		c.logger.WithItem(today.ItemID).
			WithAsOf(s.AsOf).
			WithField("warnings", m.Warnings).
			Debug("Momentum metrics incomplete")
	}

	return m
}

// PriceDelta is (today - base) / base, base being the latest positive price
// on or before asOf-horizon. Nil without such an anchor.
func PriceDelta(s series.Series, today *contracts.Observation, horizon int) *float64 {
	if !(today.Price > 0) {
		return nil
	}
	_, base, ok := s.AnchorAtOrBefore(s.AsOf.AddDate(0, 0, -horizon), series.Price)
	if !ok {
		return nil
	}
	d := (today.Price - base) / base
	return &d
}

// ZScore compares today's price with the prices of the previous window
// days. The baseline excludes today and uses the sample (n-1) deviation.
// Nil when the window holds fewer than two prices, the baseline fewer than
// two, or the baseline has zero variance. The result is clamped to ±ZClamp.
func ZScore(s series.Series, today *contracts.Observation, window int) *float64 {
	if !(today.Price > 0) {
		return nil
	}

	var baseline []float64
	for _, p := range s.Between(s.AsOf.AddDate(0, 0, -window), s.AsOf) {
		if p.Date.Equal(s.AsOf) {
			continue
		}
		if v, ok := series.Price(p); ok {
			baseline = append(baseline, v)
		}
	}

	// the window is baseline plus today, so a short baseline covers both checks
	if len(baseline) < 2 {
		return nil
	}

	mean, stddev := meanStddev(baseline)
	if stddev == 0 || math.IsNaN(stddev) {
		return nil
	}

	z := clamp((today.Price-mean)/stddev, -ZClamp, ZClamp)
	return &z
}

// SupplyDelta is today's listings minus the listings anchor at asOf-horizon.
// The anchor value is returned as the base.
func SupplyDelta(s series.Series, today *contracts.Observation, horizon int) (delta *int, base *int) {
	if today.Listings == nil {
		return nil, nil
	}
	anchor, _, ok := s.AnchorAtOrBefore(s.AsOf.AddDate(0, 0, -horizon), series.Listings)
	if !ok {
		return nil, nil
	}
	d := *today.Listings - *anchor.Listings
	b := *anchor.Listings
	return &d, &b
}

// DOMDelta is today's days-on-market minus the anchor at asOf-horizon.
func DOMDelta(s series.Series, today *contracts.Observation, horizon int) (delta *float64, base *float64) {
	if today.DaysOnMarket == nil {
		return nil, nil
	}
	_, b, ok := s.AnchorAtOrBefore(s.AsOf.AddDate(0, 0, -horizon), series.DaysOnMarket)
	if !ok {
		return nil, nil
	}
	d := *today.DaysOnMarket - b
	return &d, &b
}

// DemandMomentum is the relative change of the demand count over horizon.
// A zero base yields nil rather than an infinite move.
func DemandMomentum(s series.Series, today *contracts.Observation, horizon int) *float64 {
	if today.DemandCount == nil {
		return nil
	}
	_, base, ok := s.AnchorAtOrBefore(s.AsOf.AddDate(0, 0, -horizon), series.Demand)
	if !ok || base == 0 {
		return nil
	}
	d := (float64(*today.DemandCount) - base) / base
	return &d
}

// meanStddev returns the mean and the sample standard deviation
func meanStddev(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
