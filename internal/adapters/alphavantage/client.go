// Package alphavantage fetches quotes from the Alpha Vantage GLOBAL_QUOTE
// endpoint, rotating across multiple API keys when one is rate limited.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

const defaultBaseURL = "https://www.alphavantage.co"

// domesticSuffix is appended to domestic-exchange symbols for Alpha
// Vantage's addressing scheme (SBER -> SBER.ME).
const domesticSuffix = ".ME"

// Client implements ports.QuoteProvider against Alpha Vantage.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keys       []string
	logger     ports.Logger
}

// Config holds configuration for the Alpha Vantage client.
type Config struct {
	// APIKeys in rotation order. Blank entries are dropped.
	APIKeys    []string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     ports.Logger
}

// ParseKeys splits a comma-separated key list, trimming blanks.
func ParseKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// New creates an Alpha Vantage quote client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Alpha Vantage client")
	}
	var keys []string
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one Alpha Vantage API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, keys: keys, logger: cfg.Logger}, nil
}

// Name tags quotes fetched from this provider.
func (c *Client) Name() string { return "alpha" }

// globalQuoteResponse mirrors the GLOBAL_QUOTE payload. A populated Note
// field means the key's request quota is exhausted.
type globalQuoteResponse struct {
	Note        string `json:"Note"`
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
}

// Quote fetches the symbol's latest price, trying each configured key in
// order and moving to the next on a rate-limit response. Domestic symbols
// are suffixed for Alpha Vantage's addressing scheme and quoted in RUB,
// everything else in USD.
func (c *Client) Quote(ctx context.Context, symbol string, domestic bool) (*domain.Quote, error) {
	requested := symbol
	if domestic {
		symbol += domesticSuffix
	}

	var lastErr error
	for i, key := range c.keys {
		price, err := c.fetchWithKey(ctx, symbol, key)
		if err != nil {
			lastErr = err
			if errors.Is(err, ports.ErrRateLimited) {
				c.logger.Debug(ctx, "Alpha Vantage key rate limited, rotating",
					map[string]interface{}{"keyIndex": i, "symbol": symbol})
			}
			continue
		}
		currency := "USD"
		if domestic {
			currency = "RUB"
		}
		return &domain.Quote{
			Ticker:   requested,
			Price:    price,
			Source:   c.Name(),
			Currency: currency,
		}, nil
	}
	return nil, fmt.Errorf("%w: alpha quote for %s: %v", ports.ErrUpstreamUnavailable, requested, lastErr)
}

func (c *Client) fetchWithKey(ctx context.Context, symbol, key string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("http %d", resp.StatusCode)
	}

	var payload globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode: %w", err)
	}
	if payload.Note != "" {
		return decimal.Decimal{}, ports.ErrRateLimited
	}
	if payload.GlobalQuote.Price == "" {
		return decimal.Decimal{}, fmt.Errorf("no price in response for %s", symbol)
	}
	price, err := decimal.NewFromString(payload.GlobalQuote.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad price %q: %w", payload.GlobalQuote.Price, err)
	}
	return price, nil
}
