package profit_test

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/watchheat/internal/profit"
	"github.com/wonny/watchheat/pkg/config"
)

// ExampleCalculator_MaxBid prices a $1000 watch at a 10% target margin with
// 5% listing and 3% payment fees and $20 shipping
func ExampleCalculator_MaxBid() {
	calc := profit.NewCalculator(profit.NewModel(config.ProfitConfig{
		TargetMarginLow:   0.08,
		TargetMarginHigh:  0.10,
		ListingFeeRate:    0.05,
		PaymentFeeRate:    0.03,
		FixedShippingCost: 20,
	}))

	bid, err := calc.MaxBid(1000, decimal.NewFromFloat(0.10))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(bid.Decimal.StringFixed(2))
	// Output: 813.33
}
