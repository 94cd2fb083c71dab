package profit

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/config"
)

// Model is the fee and margin model of the max-bid overlay. Rates are fractions.
type Model struct {
	TargetMarginLow  decimal.Decimal
	TargetMarginHigh decimal.Decimal
	ListingFeeRate   decimal.Decimal
	PaymentFeeRate   decimal.Decimal
	MiscBufferRate   decimal.Decimal
	FixedCosts       decimal.Decimal
}

// NewModel converts the configured floats once, at start-up
func NewModel(cfg config.ProfitConfig) Model {
	return Model{
		TargetMarginLow:  decimal.NewFromFloat(cfg.TargetMarginLow),
		TargetMarginHigh: decimal.NewFromFloat(cfg.TargetMarginHigh),
		ListingFeeRate:   decimal.NewFromFloat(cfg.ListingFeeRate),
		PaymentFeeRate:   decimal.NewFromFloat(cfg.PaymentFeeRate),
		MiscBufferRate:   decimal.NewFromFloat(cfg.MiscBufferRate),
		FixedCosts:       decimal.NewFromFloat(cfg.FixedShippingCost),
	}
}

// FeeRate is the total proportional fee charged on a resale
func (m Model) FeeRate() decimal.Decimal {
	return m.ListingFeeRate.Add(m.PaymentFeeRate).Add(m.MiscBufferRate)
}

// Calculator derives max-bid thresholds from today's price
type Calculator struct {
	model Model
}

// NewCalculator creates a calculator for model
func NewCalculator(model Model) *Calculator {
	return &Calculator{model: model}
}

// MaxBid is price × (1 − margin) / (1 + feeRate) − fixedCosts, rounded
// half-up to cents. A negative bid means the item is unprofitable under the
// model and comes back as null; it is not an error.
func (c *Calculator) MaxBid(price float64, margin decimal.Decimal) (decimal.NullDecimal, error) {
	if !(price > 0) {
		return decimal.NullDecimal{}, fmt.Errorf("price must be > 0, got %v", price)
	}
	if margin.IsNegative() || margin.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.NullDecimal{}, fmt.Errorf("margin must be in [0, 1), got %s", margin)
	}

	one := decimal.NewFromInt(1)
	bid := decimal.NewFromFloat(price).
		Mul(one.Sub(margin)).
		DivRound(one.Add(c.model.FeeRate()), 16).
		Sub(c.model.FixedCosts).
		Round(2)

	if bid.IsNegative() {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(bid), nil
}

// Apply sets MaxBidLow/MaxBidHigh on rec from its observation. Records
// without an observation keep null bids.
func (c *Calculator) Apply(rec *contracts.HeatRecord) error {
	if rec.Observation == nil {
		return nil
	}

	low, err := c.MaxBid(rec.Observation.Price, c.model.TargetMarginLow)
	if err != nil {
		return fmt.Errorf("max bid (low margin) for %s: %w", rec.ItemID, err)
	}
	high, err := c.MaxBid(rec.Observation.Price, c.model.TargetMarginHigh)
	if err != nil {
		return fmt.Errorf("max bid (high margin) for %s: %w", rec.ItemID, err)
	}

	rec.MaxBidLow, rec.MaxBidHigh = low, high
	if !low.Valid {
		rec.Warnings = append(rec.Warnings, contracts.WarnBidLowNull)
	}
	if !high.Valid {
		rec.Warnings = append(rec.Warnings, contracts.WarnBidHighNull)
	}
	return nil
}
