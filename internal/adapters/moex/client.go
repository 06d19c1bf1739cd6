// Package moex fetches last-trade prices from the MOEX ISS public API.
package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

const defaultBaseURL = "https://iss.moex.com"

// boardMap routes symbols to the trading board they are listed on. Anything
// missing here is tried on TQBR first.
var boardMap = map[string]string{
	"GAZP": "TQBR",
	"VKCO": "TQBR",
	"SBER": "TQBR",
	"VTBR": "TQBR",
	"LKOH": "TQBR",
	"PLZL": "TQBR",
	"MGNT": "TQBR",
	"MVID": "TQBR",
	"T":    "TQBR",
	"TATN": "TQBR",
	"ALRS": "TQBR",
	"MTSS": "TQBR",
	"POSI": "TQTF",
	"GLTR": "TQTF",
	"VK":   "TQBR",
}

// Client implements ports.QuoteProvider against MOEX ISS.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     ports.Logger
}

// Config holds configuration for the MOEX client.
type Config struct {
	BaseURL    string        // defaults to the public ISS endpoint
	Timeout    time.Duration // per-request timeout, defaults to 10s
	HTTPClient *http.Client  // optional, overrides Timeout when set
	Logger     ports.Logger
}

// New creates a MOEX ISS quote client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for MOEX client")
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
	return &Client{httpClient: httpClient, baseURL: baseURL, logger: cfg.Logger}, nil
}

// Name tags quotes fetched from this provider.
func (c *Client) Name() string { return "moex" }

// Quote tries the symbol's mapped board first, then the generic TQBR and
// TQTF boards. All MOEX prices are quoted in RUB.
func (c *Client) Quote(ctx context.Context, symbol string, _ bool) (*domain.Quote, error) {
	boards := []string{boardFor(symbol), "TQBR", "TQTF"}
	var lastErr error
	for _, board := range boards {
		price, err := c.fetchBoard(ctx, board, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		return &domain.Quote{
			Ticker:   symbol,
			Price:    price,
			Source:   c.Name(),
			Currency: "RUB",
		}, nil
	}
	return nil, fmt.Errorf("%w: moex quote for %s: %v", ports.ErrUpstreamUnavailable, symbol, lastErr)
}

func boardFor(symbol string) string {
	if b, ok := boardMap[symbol]; ok {
		return b
	}
	return "TQBR"
}

// issResponse mirrors the ISS JSON shape with iss.meta=off: marketdata.data
// is a row list whose single requested column is LAST, which may be null
// outside trading hours.
type issResponse struct {
	MarketData struct {
		Data [][]interface{} `json:"data"`
	} `json:"marketdata"`
}

func (c *Client) fetchBoard(ctx context.Context, board, symbol string) (decimal.Decimal, error) {
	url := fmt.Sprintf(
		"%s/iss/engines/stock/markets/shares/boards/%s/securities/%s.json?iss.meta=off&iss.only=securities,marketdata&marketdata.columns=LAST&securities.columns=SECID,BOARDID",
		c.baseURL, board, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("board %s: http %d", board, resp.StatusCode)
	}

	var payload issResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("board %s: decode: %w", board, err)
	}
	for _, row := range payload.MarketData.Data {
		if len(row) == 0 {
			continue
		}
		if num, ok := row[0].(float64); ok {
			return decimal.NewFromFloat(num), nil
		}
	}
	return decimal.Decimal{}, fmt.Errorf("board %s: no LAST price for %s", board, symbol)
}
