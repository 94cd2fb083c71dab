package momentum

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/internal/series"
	"github.com/wonny/watchheat/pkg/config"
	"github.com/wonny/watchheat/pkg/logger"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(d int) time.Time { return day0.AddDate(0, 0, d) }

type pt struct {
	day      int
	price    float64
	listings *int
	dom      *float64
	demand   *int
}

// build returns the series as of the last point, and that point as today.
func build(points ...pt) (series.Series, *contracts.Observation) {
	obs := make([]*contracts.Observation, len(points))
	for i, p := range points {
		obs[i] = &contracts.Observation{
			ItemID:       "Rolex/116500LN",
			Date:         at(p.day),
			Price:        p.price,
			Listings:     p.listings,
			DaysOnMarket: p.dom,
			DemandCount:  p.demand,
		}
	}
	today := obs[len(obs)-1]
	return series.New(today.ItemID, today.Date, obs), today
}

func TestCalculate_ScenarioA(t *testing.T) {
	s, today := build(
		pt{day: 0, price: 100, listings: contracts.Ptr(20)},
		pt{day: 14, price: 110, listings: contracts.Ptr(15)},
		pt{day: 30, price: 121, listings: contracts.Ptr(10)},
	)

	m := NewCalculator(nil).Calculate(s, today)

	require.NotNil(t, m.Delta7)
	assert.InDelta(t, 0.10, *m.Delta7, 1e-12) // base is day 14, nearest at or before day 23
	require.NotNil(t, m.Delta14)
	assert.InDelta(t, 0.10, *m.Delta14, 1e-12)
	require.NotNil(t, m.Delta30)
	assert.InDelta(t, 0.21, *m.Delta30, 1e-12)

	require.NotNil(t, m.Z90)
	assert.InDelta(t, 16/math.Sqrt(50), *m.Z90, 1e-9)

	require.NotNil(t, m.SupplyDelta)
	assert.Equal(t, -10, *m.SupplyDelta)
	assert.Equal(t, 20, *m.SupplyBase)

	assert.Nil(t, m.DOMDelta)
	assert.Nil(t, m.DemandMomentum)
	assert.ElementsMatch(t, []string{contracts.WarnNoDOMDelta, contracts.WarnNoDemand}, m.Warnings)
	assert.True(t, m.InsufficientHistory())
}

func TestCalculate_ScenarioB_SingleObservation(t *testing.T) {
	s, today := build(pt{day: 0, price: 5000, listings: contracts.Ptr(8), dom: contracts.Ptr(12.0), demand: contracts.Ptr(3)})

	m := NewCalculator(nil).Calculate(s, today)

	assert.Nil(t, m.Delta7)
	assert.Nil(t, m.Delta14)
	assert.Nil(t, m.Delta30)
	assert.Nil(t, m.Z90)
	assert.Nil(t, m.SupplyDelta)
	assert.Nil(t, m.DOMDelta)
	assert.Nil(t, m.DemandMomentum)
	assert.Len(t, m.Warnings, 7)
}

func TestCalculate_NilToday(t *testing.T) {
	m := NewCalculator(nil).Calculate(series.New("A/1", at(0), nil), nil)
	assert.Len(t, m.Warnings, 7)
	assert.Nil(t, m.Delta14)
}

func TestCalculate_LogsIncompleteMetrics(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{Env: "test", LogLevel: "debug", LogFormat: "json"}, &buf)

	s, today := build(pt{day: 0, price: 5000})
	NewCalculator(log).Calculate(s, today)

	assert.Contains(t, buf.String(), `"item":"Rolex/116500LN"`)
	assert.Contains(t, buf.String(), `"as_of":"2025-01-01"`)
}

func TestPriceDelta_SkipsInvalidBase(t *testing.T) {
	s, today := build(
		pt{day: 0, price: 200},
		pt{day: 10, price: 0},
		pt{day: 30, price: 250},
	)

	d := PriceDelta(s, today, Horizon14)
	require.NotNil(t, d)
	assert.InDelta(t, 0.25, *d, 1e-12)
}

func TestZScore(t *testing.T) {
	tests := []struct {
		name   string
		points []pt
		want   *float64
	}{
		{
			name:   "only today",
			points: []pt{{day: 90, price: 100}},
		},
		{
			name:   "one baseline point",
			points: []pt{{day: 80, price: 100}, {day: 90, price: 120}},
		},
		{
			name:   "zero variance baseline",
			points: []pt{{day: 10, price: 100}, {day: 50, price: 100}, {day: 90, price: 120}},
		},
		{
			name:   "point outside window ignored",
			points: []pt{{day: -1, price: 1}, {day: 10, price: 100}, {day: 90, price: 120}},
		},
		{
			name:   "clamped high",
			points: []pt{{day: 10, price: 100}, {day: 20, price: 101}, {day: 90, price: 1000}},
			want:   contracts.Ptr(3.0),
		},
		{
			name:   "clamped low",
			points: []pt{{day: 10, price: 100}, {day: 20, price: 101}, {day: 90, price: 10}},
			want:   contracts.Ptr(-3.0),
		},
		{
			name:   "window start is inclusive",
			points: []pt{{day: 0, price: 100}, {day: 45, price: 110}, {day: 90, price: 105}},
			want:   contracts.Ptr(0.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, today := build(tt.points...)
			got := ZScore(s, today, Horizon90)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestZScore_ClampLaw(t *testing.T) {
	prices := []float64{1, 5, 50, 99, 100, 101, 150, 1e6}
	for _, todayPrice := range prices {
		s, today := build(
			pt{day: 60, price: 100},
			pt{day: 70, price: 102},
			pt{day: 80, price: 98},
			pt{day: 90, price: todayPrice},
		)
		z := ZScore(s, today, Horizon90)
		require.NotNil(t, z)
		assert.GreaterOrEqual(t, *z, -ZClamp)
		assert.LessOrEqual(t, *z, ZClamp)
	}
}

func TestSupplyAndDOMDelta(t *testing.T) {
	s, today := build(
		pt{day: 0, price: 100, listings: contracts.Ptr(12), dom: contracts.Ptr(40.0)},
		pt{day: 5, price: 100},
		pt{day: 35, price: 110, listings: contracts.Ptr(9), dom: contracts.Ptr(30.0)},
	)

	supply, supplyBase := SupplyDelta(s, today, Horizon30)
	require.NotNil(t, supply)
	assert.Equal(t, -3, *supply)
	assert.Equal(t, 12, *supplyBase)

	dom, domBase := DOMDelta(s, today, Horizon30)
	require.NotNil(t, dom)
	assert.Equal(t, -10.0, *dom)
	assert.Equal(t, 40.0, *domBase)
}

func TestSupplyDelta_TodayUnknown(t *testing.T) {
	s, today := build(
		pt{day: 0, price: 100, listings: contracts.Ptr(12)},
		pt{day: 30, price: 110},
	)
	delta, base := SupplyDelta(s, today, Horizon30)
	assert.Nil(t, delta)
	assert.Nil(t, base)
}

func TestDemandMomentum(t *testing.T) {
	tests := []struct {
		name string
		base *int
		now  *int
		want *float64
	}{
		{"growth", contracts.Ptr(20), contracts.Ptr(30), contracts.Ptr(0.5)},
		{"decline", contracts.Ptr(20), contracts.Ptr(10), contracts.Ptr(-0.5)},
		{"zero base", contracts.Ptr(0), contracts.Ptr(10), nil},
		{"unknown base", nil, contracts.Ptr(10), nil},
		{"unknown today", contracts.Ptr(20), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, today := build(
				pt{day: 0, price: 100, demand: tt.base},
				pt{day: 30, price: 100, demand: tt.now},
			)
			got := DemandMomentum(s, today, Horizon30)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	s, today := build(
		pt{day: 0, price: 100, listings: contracts.Ptr(20), dom: contracts.Ptr(50.0), demand: contracts.Ptr(4)},
		pt{day: 20, price: 104, listings: contracts.Ptr(18), dom: contracts.Ptr(45.0), demand: contracts.Ptr(5)},
		pt{day: 45, price: 111, listings: contracts.Ptr(12), dom: contracts.Ptr(30.0), demand: contracts.Ptr(9)},
	)
	calc := NewCalculator(nil)
	assert.Equal(t, calc.Calculate(s, today), calc.Calculate(s, today))
}
