// Package coingecko reads fiat prices for the tracked assets from the
// CoinGecko coins/markets endpoint.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	appconfig "cryptocalc/config"
	"cryptocalc/internal/currency"
	"cryptocalc/internal/metrics"
	"cryptocalc/logger"
	"cryptocalc/models"
	"cryptocalc/reader"
)

// TrackedIDs are the assets requested on every fetch.
var TrackedIDs = []string{"bitcoin", "ethereum", "binancecoin", "tether"}

// ErrNetwork wraps every failure to obtain a complete price list.
var ErrNetwork = errors.New("market data unavailable")

// StatusError reports a non-2xx answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrNetwork }

type subunit struct {
	name   string
	factor int64
}

var subunits = map[string]subunit{
	"bitcoin":     {"Satoshi", 100_000_000},
	"ethereum":    {"Wei", 1_000_000_000_000_000_000},
	"binancecoin": {"Jager", 100_000_000},
	"tether":      {"Cent", 100},
}

// Subunit returns the smallest unit name and how many of them make one
// whole asset. Unknown assets count in whole units.
func Subunit(id string) (string, int64) {
	if s, ok := subunits[id]; ok {
		return s.name, s.factor
	}
	return "Units", 1
}

// marketRecord mirrors the fields we read. Pointers tell a JSON null apart
// from zero.
type marketRecord struct {
	ID             string   `json:"id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Image          string   `json:"image"`
	CurrentPrice   *float64 `json:"current_price"`
	PriceChange24h *float64 `json:"price_change_percentage_24h"`
}

// Client fetches market prices. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

// NewClient builds a client from the reader and source settings.
func NewClient(cfg *appconfig.Config) *Client {
	rl := cfg.Reader.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.Source.Coingecko.URL, "/"),
		apiKey:     cfg.Source.Coingecko.APIKey,
		httpClient: reader.NewHTTPClient(cfg.Reader.UserAgent, cfg.Reader.Timeout),
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		log:        logger.GetLogger(),
	}
}

func (c *Client) marketsURL(code currency.Code) string {
	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(string(code)))
	q.Set("ids", strings.Join(TrackedIDs, ","))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", "10")
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")
	return c.baseURL + "/coins/markets?" + q.Encode()
}

// Fetch returns the tracked assets priced in code, in market cap order.
// Either the whole list is returned or an error wrapping ErrNetwork.
func (c *Client) Fetch(ctx context.Context, code currency.Code) ([]models.Asset, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.marketsURL(code), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	logger.RecordSourceRequest("coingecko", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var records []marketRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decode markets: %v", ErrNetwork, err)
	}

	return c.toAssets(records), nil
}

func (c *Client) toAssets(records []marketRecord) []models.Asset {
	assets := make([]models.Asset, 0, len(records))
	excluded := 0
	for _, r := range records {
		if r.CurrentPrice == nil || *r.CurrentPrice <= 0 {
			excluded++
			c.log.WithComponent("coingecko").WithFields(logger.Fields{
				"asset": r.ID,
				"price": r.CurrentPrice,
			}).Warn("excluding asset without a positive price")
			continue
		}
		name, factor := Subunit(r.ID)
		a := models.Asset{
			ID:            r.ID,
			Symbol:        r.Symbol,
			Name:          r.Name,
			CurrentPrice:  *r.CurrentPrice,
			Image:         r.Image,
			SubunitName:   name,
			SubunitFactor: factor,
		}
		if r.PriceChange24h != nil {
			a.PriceChange24h = *r.PriceChange24h
		}
		assets = append(assets, a)
	}
	metrics.AddExcluded(excluded)
	return assets
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
