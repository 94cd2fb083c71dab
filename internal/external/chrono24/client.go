package chrono24

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/watchheat/internal/contracts"
	"github.com/wonny/watchheat/pkg/httputil"
	"github.com/wonny/watchheat/pkg/logger"
)

// ErrChallenge is returned when the search page is an interstitial instead
// of results
var ErrChallenge = errors.New("chrono24 returned a challenge page")

const (
	minPrice    = 1000 // below this a "$" amount is a shipping or service fee
	maxPrice    = 500000
	maxListings = 100000

	// challenge pages are short; real result pages are far larger
	challengeMaxBytes = 20000
)

var (
	dollarRe   = regexp.MustCompile(`\$\s*([\d,]+)`)
	headerRe   = regexp.MustCompile(`(?i)([\d,]+)\s*(?:watches|listings)\b`)
	countRe    = regexp.MustCompile(`(?i)([\d,]+)\s*(?:watches|listings|offers)\s*(?:for|found|available)`)
	resultsRe  = regexp.MustCompile(`(?i)Results:\s*([\d,]+)`)
	challengeRe = regexp.MustCompile(`(?i)challenge`)
)

// Client reads listing counts and asking prices from Chrono24 search result
// pages. Chrono24 does not publish days on market, so snapshots never
// carry DOM.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Chrono24 client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// SearchURL is the result page for brand/reference
func (c *Client) SearchURL(brand, reference string) string {
	params := url.Values{}
	params.Set("query", brand+" "+reference)
	params.Set("dosearch", "true")
	return c.baseURL + "/search/index.htm?" + params.Encode()
}

// fetchHTML fetches one page
func (c *Client) fetchHTML(ctx context.Context, fullURL string) (string, error) {
	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &httputil.StatusError{StatusCode: resp.StatusCode, URL: fullURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// MarketSnapshot returns the median asking price and listing count for
// brand/reference, or nil when the page lists no usable prices.
func (c *Client) MarketSnapshot(ctx context.Context, brand, reference string) (*contracts.MarketSnapshot, error) {
	log := c.logger.WithItem(brand + "/" + reference)
	pageURL := c.SearchURL(brand, reference)

	html, err := c.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if len(html) < challengeMaxBytes && challengeRe.MatchString(html) {
		return nil, ErrChallenge
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	prices := extractPrices(doc)
	if len(prices) == 0 {
		log.Warn("No prices on Chrono24 search page")
		return nil, nil
	}

	snap := &contracts.MarketSnapshot{
		SourceID: pageURL,
		Price:    contracts.Ptr(median(prices)),
		Listings: extractListingCount(doc),
	}
	if snap.Listings == nil {
		log.Debug("Chrono24 listing count not found")
	}
	return snap, nil
}

// extractListingCount reads the result count from the page header, then
// from result summary text
func extractListingCount(doc *goquery.Document) *int {
	candidates := []struct {
		text string
		re   *regexp.Regexp
	}{
		{doc.Find("h1").First().Text(), headerRe},
		{doc.Find("body").Text(), countRe},
		{doc.Find("body").Text(), resultsRe},
	}

	for _, c := range candidates {
		m := c.re.FindStringSubmatch(c.text)
		if m == nil {
			continue
		}
		n, err := parseAmount(m[1])
		if err == nil && n < maxListings {
			return &n
		}
	}
	return nil
}

// extractPrices collects distinct dollar amounts from price elements, in
// page order. Listings often repeat their price, so duplicates are dropped.
func extractPrices(doc *goquery.Document) []float64 {
	seen := make(map[int]bool)
	var prices []float64

	doc.Find(`[class*="price"]`).Each(func(_ int, s *goquery.Selection) {
		// nested price elements would be counted twice
		if s.Find(`[class*="price"]`).Length() > 0 {
			return
		}
		for _, m := range dollarRe.FindAllStringSubmatch(s.Text(), -1) {
			p, err := parseAmount(m[1])
			if err != nil || p <= minPrice || p >= maxPrice || seen[p] {
				continue
			}
			seen[p] = true
			prices = append(prices, float64(p))
		}
	})
	return prices
}

func parseAmount(s string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(s, ",", ""))
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
