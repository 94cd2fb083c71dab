package ebay

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/watchheat/pkg/httputil"
	"github.com/wonny/watchheat/pkg/logger"
)

// Client queries the eBay Browse API for active listing counts, used as
// a demand proxy. The http client carries the bearer token.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new eBay client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type searchResponse struct {
	Total        *int `json:"total"`
	TotalMatched *int `json:"totalMatched"`
}

// SearchCount returns the number of items matching query. Only the count is
// read, so a single result is requested.
func (c *Client) SearchCount(ctx context.Context, query string) (int, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")
	params.Set("offset", "0")

	var resp searchResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/item_summary/search?"+params.Encode(), &resp); err != nil {
		return 0, fmt.Errorf("ebay search %q: %w", query, err)
	}

	switch {
	case resp.Total != nil:
		return *resp.Total, nil
	case resp.TotalMatched != nil:
		return *resp.TotalMatched, nil
	}
	return 0, fmt.Errorf("ebay search %q: response has no total", query)
}
