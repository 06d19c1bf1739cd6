package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

// SpotDraft carries the caller's input for one spot transaction. Amount,
// when zero, is derived from price and quantity with the sign the
// transaction type implies.
type SpotDraft struct {
	Company   string
	Ticker    string
	Type      domain.SpotTransactionType
	Price     *decimal.Decimal
	Quantity  *decimal.Decimal
	Amount    decimal.Decimal
	TradeDate *time.Time
	Note      string
}

// SpotService manages spot (non-margin) transactions and their read-side
// folds: current holdings on running average cost and the cash/PnL stats.
type SpotService struct {
	store  ports.Store
	logger ports.Logger
	now    func() time.Time
}

// NewSpotService creates the spot transaction service.
func NewSpotService(store ports.Store, logger ports.Logger) (*SpotService, error) {
	if store == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for SpotService")
	}
	return &SpotService{store: store, logger: logger, now: time.Now}, nil
}

// Create validates and persists one spot transaction.
func (s *SpotService) Create(ctx context.Context, userID, portfolioID int64, draft SpotDraft) (*domain.SpotTransaction, error) {
	if portfolioID == 0 {
		return nil, domain.Invalid("portfolioId", "must be set")
	}
	ticker := strings.ToUpper(strings.TrimSpace(draft.Ticker))
	if ticker == "" {
		return nil, domain.Invalid("ticker", "must not be empty")
	}
	switch draft.Type {
	case domain.SpotBuy, domain.SpotSell:
		if draft.Price == nil || draft.Price.Sign() <= 0 {
			return nil, domain.Invalid("price", "must be positive for BUY/SELL")
		}
		if draft.Quantity == nil || draft.Quantity.Sign() <= 0 {
			return nil, domain.Invalid("quantity", "must be positive for BUY/SELL")
		}
	case domain.SpotDividend, domain.SpotDeposit, domain.SpotWithdraw:
	default:
		return nil, domain.Invalid("type", "unknown transaction type")
	}

	tx := &domain.SpotTransaction{
		PortfolioID: portfolioID,
		UserID:      userID,
		Company:     draft.Company,
		Ticker:      ticker,
		Type:        draft.Type,
		Price:       draft.Price,
		Quantity:    draft.Quantity,
		Amount:      draft.Amount,
		Note:        draft.Note,
	}
	if draft.TradeDate != nil {
		tx.TradeDate = domain.DateOnly(*draft.TradeDate)
	} else {
		tx.TradeDate = domain.DateOnly(s.now())
	}
	if tx.Amount.IsZero() && tx.Price != nil && tx.Quantity != nil {
		gross := tx.Price.Mul(*tx.Quantity).Round(domain.MoneyScale)
		// Cash flows out on a buy.
		if tx.Type == domain.SpotBuy {
			gross = gross.Neg()
		}
		tx.Amount = gross
	}

	id, err := s.store.CreateSpotTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	tx.ID = id
	return tx, nil
}

// Update rewrites one spot transaction.
func (s *SpotService) Update(ctx context.Context, userID int64, tx *domain.SpotTransaction) (*domain.SpotTransaction, error) {
	existing, err := s.Get(ctx, userID, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.UserID = userID
	tx.PortfolioID = existing.PortfolioID
	if err := s.store.UpdateSpotTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Delete removes one spot transaction.
func (s *SpotService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteSpotTransaction(ctx, id, userID)
}

// Get loads one spot transaction.
func (s *SpotService) Get(ctx context.Context, userID, id int64) (*domain.SpotTransaction, error) {
	tx, err := s.store.FindSpotTransaction(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: spot transaction %d", ports.ErrNotFound, id)
	}
	return tx, nil
}

// List returns the user's spot transactions, scoped to one portfolio when
// portfolioID is non-zero.
func (s *SpotService) List(ctx context.Context, userID, portfolioID int64) ([]*domain.SpotTransaction, error) {
	if portfolioID != 0 {
		return s.store.FindSpotTransactionsByPortfolio(ctx, portfolioID, userID)
	}
	return s.store.FindSpotTransactionsByUser(ctx, userID)
}

type posAcc struct {
	qty     decimal.Decimal
	cost    decimal.Decimal
	company string
}

// applyTrade folds one BUY or SELL row into the accumulator using running
// average cost: a sell removes quantity at the current average and leaves
// the average unchanged for what remains.
func (p *posAcc) applyTrade(tx *domain.SpotTransaction) decimal.Decimal {
	price := decimal.Zero
	if tx.Price != nil {
		price = *tx.Price
	}
	qty := decimal.Zero
	if tx.Quantity != nil {
		qty = *tx.Quantity
	}
	p.company = tx.Company

	if tx.Type == domain.SpotBuy {
		p.qty = p.qty.Add(qty)
		p.cost = p.cost.Add(price.Mul(qty))
		return decimal.Zero
	}

	avg := decimal.Zero
	if p.qty.Sign() > 0 {
		avg = p.cost.DivRound(p.qty, domain.CalcScale)
	}
	realized := price.Sub(avg).Mul(qty)
	p.qty = clampZero(p.qty.Sub(qty))
	p.cost = clampZero(p.cost.Sub(avg.Mul(qty)))
	return realized
}

// Holdings folds BUY/SELL rows into the current open positions, skipping
// the synthetic cash ticker and anything sold down to zero.
func (s *SpotService) Holdings(ctx context.Context, userID, portfolioID int64) ([]domain.SpotHolding, error) {
	txs, err := s.List(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	accs := make(map[string]*posAcc)
	for _, tx := range txs {
		if tx.Ticker == domain.CashTicker {
			continue
		}
		if tx.Type != domain.SpotBuy && tx.Type != domain.SpotSell {
			continue
		}
		acc, ok := accs[tx.Ticker]
		if !ok {
			acc = &posAcc{}
			accs[tx.Ticker] = acc
		}
		acc.applyTrade(tx)
	}

	out := make([]domain.SpotHolding, 0, len(accs))
	for ticker, acc := range accs {
		if acc.qty.Sign() <= 0 {
			continue
		}
		out = append(out, domain.SpotHolding{
			Ticker:   ticker,
			Company:  acc.company,
			Quantity: acc.qty,
			AvgPrice: acc.cost.DivRound(acc.qty, domain.MoneyScale),
			Invested: acc.cost.Round(domain.MoneyScale),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

// Stats summarizes a portfolio's spot activity: cash balance, invested
// and received totals, dividends, and realized PnL on average cost.
func (s *SpotService) Stats(ctx context.Context, userID, portfolioID int64) (*domain.SpotStats, error) {
	txs, err := s.List(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	stats := &domain.SpotStats{}
	realized := decimal.Zero
	accs := make(map[string]*posAcc)

	for _, tx := range txs {
		stats.CashBalance = stats.CashBalance.Add(tx.Amount)

		price := decimal.Zero
		if tx.Price != nil {
			price = *tx.Price
		}
		qty := decimal.Zero
		if tx.Quantity != nil {
			qty = *tx.Quantity
		}

		switch tx.Type {
		case domain.SpotBuy:
			stats.TotalInvested = stats.TotalInvested.Add(price.Mul(qty))
			acc, ok := accs[tx.Ticker]
			if !ok {
				acc = &posAcc{}
				accs[tx.Ticker] = acc
			}
			acc.applyTrade(tx)
		case domain.SpotSell:
			stats.TotalReceived = stats.TotalReceived.Add(price.Mul(qty))
			acc, ok := accs[tx.Ticker]
			if !ok {
				acc = &posAcc{}
				accs[tx.Ticker] = acc
			}
			realized = realized.Add(acc.applyTrade(tx))
			stats.ClosedPositions++
		case domain.SpotDividend:
			stats.TotalDividends = stats.TotalDividends.Add(tx.Amount)
		case domain.SpotDeposit, domain.SpotWithdraw:
			// Already counted in the cash balance.
		}
	}

	for _, acc := range accs {
		if acc.qty.Sign() > 0 {
			stats.OpenPositions++
		}
	}
	stats.PositionsCount = len(accs)

	stats.CashBalance = stats.CashBalance.Round(domain.MoneyScale)
	stats.TotalInvested = stats.TotalInvested.Round(domain.MoneyScale)
	stats.TotalReceived = stats.TotalReceived.Round(domain.MoneyScale)
	stats.TotalDividends = stats.TotalDividends.Round(domain.MoneyScale)
	stats.RealizedPnL = realized.Add(stats.TotalDividends).Round(domain.MoneyScale)
	return stats, nil
}
