package ports

import (
	"context"

	"marginDiary/internal/domain"
)

// QuoteProvider fetches a current price for one symbol from an upstream
// source. domestic tells providers with exchange-specific addressing that
// the symbol trades on the domestic exchange (the secondary provider
// suffixes such symbols). Failures are reported as errors; the quote cache
// degrades them to absence of data.
type QuoteProvider interface {
	// Name tags quotes with their source.
	Name() string
	Quote(ctx context.Context, symbol string, domestic bool) (*domain.Quote, error)
}
