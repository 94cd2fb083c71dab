// Package acquisition turns external market data into daily observations.
package acquisition

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/watchheat/internal/contracts"
)

// Static serves observations from memory. It backs fixture runs and tests.
type Static struct {
	byKey map[string]*contracts.Observation
}

func staticKey(itemID string, date time.Time) string {
	return itemID + "@" + contracts.Day(date).Format(contracts.DateLayout)
}

// NewStatic indexes observations by item and day. A later observation for
// the same key replaces an earlier one.
func NewStatic(observations ...*contracts.Observation) *Static {
	s := &Static{byKey: make(map[string]*contracts.Observation, len(observations))}
	for _, o := range observations {
		s.byKey[staticKey(o.ItemID, o.Date)] = o
	}
	return s
}

// Acquire returns the fixture for (item, asOf), or nil
func (s *Static) Acquire(ctx context.Context, item contracts.Item, asOf time.Time) (*contracts.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o, ok := s.byKey[staticKey(item.ID(), asOf)]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

// Len returns the number of fixtures
func (s *Static) Len() int {
	return len(s.byKey)
}

type fixtureFile struct {
	Observations []fixture `yaml:"observations"`
}

type fixture struct {
	Item         string   `yaml:"item"`
	Date         string   `yaml:"date"`
	Price        float64  `yaml:"price"`
	Listings     *int     `yaml:"listings"`
	DaysOnMarket *float64 `yaml:"days_on_market"`
	DemandCount  *int     `yaml:"demand_count"`
}

// LoadFixtures reads a YAML fixture file:
//
//	observations:
//	  - item: Rolex/126610LV
//	    date: 2025-03-01
//	    price: 14250
//	    listings: 42
func LoadFixtures(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()

	var file fixtureFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode fixtures %s: %w", path, err)
	}

	observations := make([]*contracts.Observation, 0, len(file.Observations))
	for i, fx := range file.Observations {
		date, err := contracts.ParseDay(fx.Date)
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		obs := &contracts.Observation{
			ItemID:       fx.Item,
			Date:         date,
			Price:        fx.Price,
			Listings:     fx.Listings,
			DaysOnMarket: fx.DaysOnMarket,
			DemandCount:  fx.DemandCount,
		}
		if err := obs.Validate(); err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
		observations = append(observations, obs)
	}
	return NewStatic(observations...), nil
}
