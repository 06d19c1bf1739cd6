package ports

import (
	"context"

	"marginDiary/internal/domain"
)

// TradeStore persists trades and their owned closures and financing events.
// Find methods return nil, nil when nothing matches.
type TradeStore interface {
	// CreateTrade saves a new trade and returns its assigned ID.
	CreateTrade(ctx context.Context, t *domain.Trade) (int64, error)
	// UpdateTrade rewrites a trade's mutable fields (exit facts, financing
	// amounts, base rate).
	UpdateTrade(ctx context.Context, t *domain.Trade) error
	// DeleteTrade removes a trade and, transactionally, its closures and
	// financing events.
	DeleteTrade(ctx context.Context, id, userID int64) error
	// FindTradeByID loads one trade with its closures and financing events.
	FindTradeByID(ctx context.Context, id, userID int64) (*domain.Trade, error)
	// FindTradesByUser loads all of a user's trades, children included.
	FindTradesByUser(ctx context.Context, userID int64) ([]*domain.Trade, error)
	// FindTradesByPortfolio loads one portfolio's trades, children included.
	FindTradesByPortfolio(ctx context.Context, portfolioID, userID int64) ([]*domain.Trade, error)
	// FindOpenLots loads trades for (user, symbol) with no exit date, ordered
	// ascending by entry date. The FIFO engine depends on that order.
	FindOpenLots(ctx context.Context, userID int64, symbol string) ([]*domain.Trade, error)
	// ListOpenSymbols returns the distinct symbols with open lots.
	ListOpenSymbols(ctx context.Context) ([]string, error)
	// CreateClosure records one partial closure.
	CreateClosure(ctx context.Context, c *domain.TradeClosure) (int64, error)
	// CreateFinancingEvent records one financing event.
	CreateFinancingEvent(ctx context.Context, e *domain.FinancingEvent) (int64, error)
}

// PortfolioStore persists portfolios.
type PortfolioStore interface {
	CreatePortfolio(ctx context.Context, p *domain.Portfolio) (int64, error)
	// FindPortfolio returns nil, nil when the portfolio does not exist or
	// belongs to another user.
	FindPortfolio(ctx context.Context, id, userID int64) (*domain.Portfolio, error)
	FindPortfoliosByUser(ctx context.Context, userID int64) ([]*domain.Portfolio, error)
	// DeactivatePortfolio soft-deletes: the row stays, is_active drops.
	DeactivatePortfolio(ctx context.Context, id, userID int64) error
}

// SpotStore persists spot transactions.
type SpotStore interface {
	CreateSpotTransaction(ctx context.Context, tx *domain.SpotTransaction) (int64, error)
	UpdateSpotTransaction(ctx context.Context, tx *domain.SpotTransaction) error
	DeleteSpotTransaction(ctx context.Context, id, userID int64) error
	FindSpotTransaction(ctx context.Context, id, userID int64) (*domain.SpotTransaction, error)
	FindSpotTransactionsByUser(ctx context.Context, userID int64) ([]*domain.SpotTransaction, error)
	FindSpotTransactionsByPortfolio(ctx context.Context, portfolioID, userID int64) ([]*domain.SpotTransaction, error)
}

// Store is the full storage collaborator. InTransaction runs fn against a
// store view bound to one transaction; the FIFO engine relies on it so
// concurrent closes cannot double-allocate open quantity.
type Store interface {
	TradeStore
	PortfolioStore
	SpotStore
	InTransaction(ctx context.Context, fn func(Store) error) error
}
