// Package binanceclient fetches spot prices for crypto tickers using the
// go-binance library. It serves quote lookups for symbols held in crypto
// pairs (BTCUSDT, ETHUSDC and similar).
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

const (
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"
)

// Client implements ports.QuoteProvider using the go-binance library.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance client adapter. Keys are optional because
// price endpoints are public.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using the global binance.UseTestnet.
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
	}

	return &Client{spotClient: client, logger: cfg.Logger}, nil
}

// Name tags quotes fetched from this provider.
func (c *Client) Name() string { return "binance" }

// Quote fetches the latest spot price for the symbol. The domestic flag
// is ignored; crypto pairs have no exchange suffixing.
func (c *Client) Quote(ctx context.Context, symbol string, _ bool) (*domain.Quote, error) {
	op := "GetPrice"
	prices, err := c.spotClient.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: binance returned no price for %s", ports.ErrNoPrice, symbol)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("parse price %q: %w", prices[0].Price, err), op)
	}
	return &domain.Quote{
		Ticker:   symbol,
		Price:    price,
		Source:   c.Name(),
		Currency: quoteCurrency(symbol),
	}, nil
}

// quoteCurrency derives the quote side of the pair from its suffix.
func quoteCurrency(symbol string) string {
	for _, q := range []string{"USDT", "USDC", "BUSD"} {
		if strings.HasSuffix(symbol, q) {
			return q
		}
	}
	return "USD"
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1121: // Invalid symbol
			mappedErr = ports.ErrNoPrice
		default:
			mappedErr = ports.ErrUpstreamUnavailable
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUpstreamUnavailable, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}
