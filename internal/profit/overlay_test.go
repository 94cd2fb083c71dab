package profit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/config"
)

func scenarioCModel() Model {
	return NewModel(config.ProfitConfig{
		TargetMarginLow:   0.08,
		TargetMarginHigh:  0.10,
		ListingFeeRate:    0.05,
		PaymentFeeRate:    0.03,
		FixedShippingCost: 20,
	})
}

func TestMaxBid_ScenarioC(t *testing.T) {
	c := NewCalculator(scenarioCModel())

	// 1000 × 0.90 / 1.08 − 20 = 813.333… → 813.33
	bid, err := c.MaxBid(1000, decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	require.True(t, bid.Valid)
	assert.Equal(t, "813.33", bid.Decimal.StringFixed(2))
}

func TestMaxBid_Table(t *testing.T) {
	c := NewCalculator(NewModel(config.ProfitConfig{
		ListingFeeRate:    0.065,
		PaymentFeeRate:    0.029,
		MiscBufferRate:    0.01,
		FixedShippingCost: 100,
	}))

	tests := []struct {
		name   string
		price  float64
		margin string
		want   string
	}{
		// 12500 × 0.92 / 1.104 − 100
		{"default low margin", 12500, "0.08", "10316.67"},
		// 12500 × 0.90 / 1.104 − 100 = 10090.5797…
		{"default high margin", 12500, "0.10", "10090.58"},
		{"zero margin", 1104, "0", "900.00"},
		{"exactly break even", 110.4, "0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bid, err := c.MaxBid(tt.price, decimal.RequireFromString(tt.margin))
			require.NoError(t, err)
			require.True(t, bid.Valid)
			assert.Equal(t, tt.want, bid.Decimal.StringFixed(2))
		})
	}
}

func TestMaxBid_NegativeIsNull(t *testing.T) {
	c := NewCalculator(scenarioCModel())

	bid, err := c.MaxBid(15, decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	assert.False(t, bid.Valid)
}

func TestMaxBid_InvalidInput(t *testing.T) {
	c := NewCalculator(scenarioCModel())

	_, err := c.MaxBid(0, decimal.RequireFromString("0.10"))
	assert.Error(t, err)

	_, err = c.MaxBid(100, decimal.RequireFromString("1"))
	assert.Error(t, err)

	_, err = c.MaxBid(100, decimal.RequireFromString("-0.1"))
	assert.Error(t, err)
}

func TestFeeRate(t *testing.T) {
	m := NewModel(config.ProfitConfig{ListingFeeRate: 0.065, PaymentFeeRate: 0.029, MiscBufferRate: 0.01})
	assert.Equal(t, "0.104", m.FeeRate().String())
}

func TestApply(t *testing.T) {
	c := NewCalculator(scenarioCModel())
	asOf := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	rec := contracts.HeatRecord{
		ItemID:      "A/1",
		Observation: &contracts.Observation{ItemID: "A/1", Date: asOf, Price: 1000},
	}
	require.NoError(t, c.Apply(&rec))
	assert.Equal(t, "831.85", rec.MaxBidLow.Decimal.StringFixed(2))
	assert.Equal(t, "813.33", rec.MaxBidHigh.Decimal.StringFixed(2))
	assert.Empty(t, rec.Warnings)

	cheap := contracts.HeatRecord{
		ItemID:      "A/2",
		Observation: &contracts.Observation{ItemID: "A/2", Date: asOf, Price: 20},
	}
	require.NoError(t, c.Apply(&cheap))
	assert.False(t, cheap.MaxBidLow.Valid)
	assert.False(t, cheap.MaxBidHigh.Valid)
	assert.Equal(t, []string{contracts.WarnBidLowNull, contracts.WarnBidHighNull}, cheap.Warnings)

	missing := contracts.HeatRecord{ItemID: "A/3"}
	require.NoError(t, c.Apply(&missing))
	assert.False(t, missing.MaxBidLow.Valid)
}
