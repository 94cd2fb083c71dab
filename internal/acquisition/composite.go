package acquisition

import (
	"context"
	"time"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/logger"
)

// MarketSource reports price, supply and days on market for a reference.
// A nil snapshot means the reference is unknown.
type MarketSource interface {
	MarketSnapshot(ctx context.Context, brand, reference string) (*contracts.MarketSnapshot, error)
}

// DemandSource counts marketplace results for a free-text query
type DemandSource interface {
	SearchCount(ctx context.Context, query string) (int, error)
}

// Composite builds an observation from a market source and an optional
// demand source. Demand failures only blank the demand field.
type Composite struct {
	market MarketSource
	demand DemandSource
	logger *logger.Logger
}

// NewComposite creates a composite acquirer. demand may be nil.
func NewComposite(market MarketSource, demand DemandSource, log *logger.Logger) *Composite {
	if log == nil {
		log = logger.Nop()
	}
	return &Composite{market: market, demand: demand, logger: log}
}

// Acquire implements contracts.Acquirer
func (c *Composite) Acquire(ctx context.Context, item contracts.Item, asOf time.Time) (*contracts.Observation, error) {
	log := c.logger.WithItem(item.ID()).WithAsOf(asOf)

	snap, err := c.market.MarketSnapshot(ctx, item.Brand, item.Reference)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Price == nil || *snap.Price <= 0 {
		log.Warn("No usable market price")
		return nil, nil
	}

	obs := &contracts.Observation{
		ItemID:       item.ID(),
		Date:         contracts.Day(asOf),
		Price:        *snap.Price,
		Listings:     snap.Listings,
		DaysOnMarket: snap.DaysOnMarket,
	}
	if obs.Listings != nil && *obs.Listings < 0 {
		obs.Listings = nil
	}
	if obs.DaysOnMarket != nil && *obs.DaysOnMarket < 0 {
		obs.DaysOnMarket = nil
	}

	if c.demand != nil {
		n, err := c.demand.SearchCount(ctx, item.Brand+" "+item.Reference)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Warn("Demand lookup failed")
		} else {
			obs.DemandCount = &n
		}
	}

	return obs, nil
}
