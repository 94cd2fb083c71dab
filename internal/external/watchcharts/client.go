package watchcharts

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/httputil"
	"github.com/wonny/watchheat/pkg/logger"
	"github.com/wonny/watchheat/pkg/redis"
)

// uuidTTL is how long a reference → uuid lookup stays cached in Redis
const uuidTTL = 7 * 24 * time.Hour

// Client talks to the WatchCharts v3 API. The http client is expected to
// carry the x-api-key header, retry policy and rate limiter.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	cache      *redis.Cache

	mu    sync.Mutex
	uuids map[string]string
}

// NewClient creates a new WatchCharts client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		uuids:      make(map[string]string),
	}
}

// WithCache shares uuid lookups across processes
func (c *Client) WithCache(cache *redis.Cache) *Client {
	c.cache = cache
	return c
}

type searchResponse struct {
	Results []struct {
		UUID      string `json:"uuid"`
		Reference string `json:"reference"`
	} `json:"results"`
}

// flexNumber accepts JSON numbers, numeric strings and null
type flexNumber struct {
	Value *float64
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		n.Value = nil
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", string(b))
	}
	n.Value = &v
	return nil
}

// infoResponse covers the field spellings seen across API versions
type infoResponse struct {
	MarketPrice      flexNumber `json:"market_price"`
	MarketPriceCamel flexNumber `json:"marketPrice"`
	Price            struct {
		Market flexNumber `json:"market"`
	} `json:"price"`
	DaysOnMarket   flexNumber `json:"days_on_market"`
	DOM            flexNumber `json:"dom"`
	ListingsActive flexNumber `json:"listings_active"`
	Listings       flexNumber `json:"listings"`
}

func firstOf(values ...flexNumber) *float64 {
	for _, v := range values {
		if v.Value != nil {
			return v.Value
		}
	}
	return nil
}

// LookupUUID finds the WatchCharts id of brand/reference. An exact
// (case-insensitive) reference match wins over the first result. Returns
// "" when the search has no results.
func (c *Client) LookupUUID(ctx context.Context, brand, reference string) (string, error) {
	key := brand + "/" + reference

	c.mu.Lock()
	id, ok := c.uuids[key]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	cacheKey := "watchcharts:uuid:" + key
	if c.cache != nil {
		if found, err := c.cache.Get(ctx, cacheKey, &id); err == nil && found {
			c.remember(key, id)
			return id, nil
		}
	}

	params := url.Values{}
	params.Set("brand_name", brand)
	params.Set("reference", reference)

	var resp searchResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/search/watch?"+params.Encode(), &resp); err != nil {
		return "", fmt.Errorf("search %s: %w", key, err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}

	id = resp.Results[0].UUID
	for _, r := range resp.Results {
		if strings.EqualFold(r.Reference, reference) {
			id = r.UUID
			break
		}
	}

	c.remember(key, id)
	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, id, uuidTTL); err != nil {
			c.logger.WithError(err).Warn("Failed to cache WatchCharts uuid")
		}
	}
	return id, nil
}

func (c *Client) remember(key, id string) {
	c.mu.Lock()
	c.uuids[key] = id
	c.mu.Unlock()
}

// MarketSnapshot returns the current market state of brand/reference, or
// nil when the reference is unknown to WatchCharts.
func (c *Client) MarketSnapshot(ctx context.Context, brand, reference string) (*contracts.MarketSnapshot, error) {
	id, err := c.LookupUUID(ctx, brand, reference)
	if err != nil {
		return nil, err
	}
	if id == "" {
		c.logger.WithItem(brand + "/" + reference).Warn("WatchCharts has no match for reference")
		return nil, nil
	}

	var info infoResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/watch/info?uuid="+url.QueryEscape(id), &info); err != nil {
		return nil, fmt.Errorf("watch info %s: %w", id, err)
	}

	snap := &contracts.MarketSnapshot{
		SourceID:     id,
		Price:        firstOf(info.MarketPrice, info.Price.Market, info.MarketPriceCamel),
		DaysOnMarket: firstOf(info.DaysOnMarket, info.DOM),
	}
	if l := firstOf(info.ListingsActive, info.Listings); l != nil {
		n := int(*l)
		snap.Listings = &n
	}
	return snap, nil
}
