// Package app holds the application services: trade lifecycle (open,
// FIFO close, financing events, import), portfolio and spot transaction
// management, and the read-side statistics folds.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

// TradeDraft carries the caller's input for opening a position. Optional
// financing fields left nil are derived or defaulted during normalization.
type TradeDraft struct {
	Symbol     string
	EntryPrice decimal.Decimal
	Quantity   int64
	EntryDate  *time.Time
	MarginRate decimal.Decimal

	Leverage          *decimal.Decimal
	BorrowedAmount    *decimal.Decimal
	CollateralAmount  *decimal.Decimal
	MaintenanceMargin *decimal.Decimal
	RateType          domain.FinancingRateType
	FinancingCurrency string
	Notes             string
}

// FinancingEventDraft carries the caller's input for one financing event.
type FinancingEventDraft struct {
	EventType    domain.FinancingEventType
	EventDate    *time.Time
	Rate         *decimal.Decimal
	AmountChange *decimal.Decimal
	Notes        string
}

// ImportError reports one failed row of a bulk import.
type ImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a bulk import. Failed rows never abort the
// batch; they are reported alongside the successes.
type ImportResult struct {
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	TradeIDs []int64       `json:"tradeIds"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// TradeService owns the trade lifecycle: normalization on open, FIFO
// closure, financing events and their effect on the trade, import.
type TradeService struct {
	store  ports.Store
	logger ports.Logger
	now    func() time.Time
}

// NewTradeService creates the trade application service.
func NewTradeService(store ports.Store, logger ports.Logger) (*TradeService, error) {
	if store == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for TradeService")
	}
	return &TradeService{store: store, logger: logger, now: time.Now}, nil
}

// Open validates and normalizes a draft into a persisted trade. The
// financing triple is resolved so borrowed + collateral equals the
// position cost within a cent, money at 2 decimals and leverage at 4.
func (s *TradeService) Open(ctx context.Context, userID, portfolioID int64, draft TradeDraft) (*domain.Trade, error) {
	portfolio, err := s.requireActivePortfolio(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(draft.Symbol))
	if symbol == "" {
		return nil, domain.Invalid("symbol", "must not be empty")
	}
	if draft.EntryPrice.Sign() <= 0 {
		return nil, domain.Invalid("entryPrice", "must be positive")
	}
	if draft.Quantity <= 0 {
		return nil, domain.Invalid("quantity", "must be positive")
	}
	if draft.MarginRate.Sign() < 0 {
		return nil, domain.Invalid("marginRate", "must not be negative")
	}
	if draft.Leverage != nil && draft.Leverage.LessThan(decimal.NewFromInt(1)) {
		return nil, domain.Invalid("leverage", "must be at least 1")
	}

	trade := &domain.Trade{
		PortfolioID:       portfolioID,
		UserID:            userID,
		Symbol:            symbol,
		EntryPrice:        draft.EntryPrice,
		Quantity:          draft.Quantity,
		MarginRate:        draft.MarginRate,
		Leverage:          draft.Leverage,
		BorrowedAmount:    draft.BorrowedAmount,
		CollateralAmount:  draft.CollateralAmount,
		MaintenanceMargin: draft.MaintenanceMargin,
		RateType:          draft.RateType,
		FinancingCurrency: draft.FinancingCurrency,
		Notes:             draft.Notes,
	}
	if draft.EntryDate != nil {
		trade.EntryDate = domain.DateOnly(*draft.EntryDate)
	} else {
		trade.EntryDate = domain.DateOnly(s.now())
	}

	normalizeFinancing(trade)

	if trade.MaintenanceMargin == nil {
		mm := decimal.NewFromInt(20)
		trade.MaintenanceMargin = &mm
	}
	if trade.RateType == "" {
		trade.RateType = domain.RateFixed
	}
	if trade.FinancingCurrency == "" {
		trade.FinancingCurrency = portfolio.Currency
	}

	id, err := s.store.CreateTrade(ctx, trade)
	if err != nil {
		return nil, err
	}
	trade.ID = id

	s.logger.Info(ctx, "Trade opened", map[string]interface{}{
		"tradeID":  id,
		"symbol":   symbol,
		"quantity": trade.Quantity,
		"borrowed": trade.BorrowedAmount.String(),
	})
	return trade, nil
}

// normalizeFinancing resolves the borrowed/collateral/leverage triple
// from whatever subset the caller supplied. Resolution order when the
// borrowed amount is absent: leverage, then collateral, then fully
// borrowed. Clamps keep both amounts non-negative.
func normalizeFinancing(t *domain.Trade) {
	positionCost := t.PositionCost()
	zero := decimal.Zero.Round(domain.MoneyScale)

	if t.BorrowedAmount == nil {
		switch {
		case t.Leverage != nil && t.Leverage.Sign() > 0:
			ownFunds := positionCost.DivRound(*t.Leverage, 6)
			borrowed := clampZero(positionCost.Sub(ownFunds)).Round(domain.MoneyScale)
			collateral := clampZero(ownFunds).Round(domain.MoneyScale)
			t.BorrowedAmount = &borrowed
			t.CollateralAmount = &collateral
		case t.CollateralAmount != nil:
			borrowed := clampZero(positionCost.Sub(*t.CollateralAmount)).Round(domain.MoneyScale)
			t.BorrowedAmount = &borrowed
		default:
			borrowed := positionCost.Round(domain.MoneyScale)
			t.BorrowedAmount = &borrowed
			t.CollateralAmount = &zero
		}
	} else if t.CollateralAmount == nil {
		collateral := clampZero(positionCost.Sub(*t.BorrowedAmount)).Round(domain.MoneyScale)
		t.CollateralAmount = &collateral
	}

	if t.Leverage == nil && t.BorrowedAmount != nil {
		ownFunds := positionCost.Sub(*t.BorrowedAmount)
		if ownFunds.Sign() > 0 {
			lev := positionCost.DivRound(ownFunds, domain.RateScale)
			t.Leverage = &lev
		}
	}
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}

// FIFOClose closes qtyToClose units of the symbol across the user's open
// lots, oldest entry first. Leftover quantity when the lots run out is a
// partial success, not an error. The whole allocation runs in one store
// transaction so concurrent closes cannot double-spend open quantity.
func (s *TradeService) FIFOClose(ctx context.Context, userID int64, symbol string, qtyToClose int64, exitPrice decimal.Decimal, exitDate time.Time, notes string) (*domain.ClosureResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, domain.Invalid("symbol", "must not be empty")
	}
	if qtyToClose <= 0 {
		return nil, domain.Invalid("quantity", "must be positive")
	}
	if exitPrice.Sign() <= 0 {
		return nil, domain.Invalid("exitPrice", "must be positive")
	}
	exitDate = domain.DateOnly(exitDate)

	closureNotes := "FIFO"
	if notes != "" {
		closureNotes = "FIFO: " + notes
	}

	result := &domain.ClosureResult{
		Requested:     qtyToClose,
		GrossProceeds: decimal.Zero,
		EntryCost:     decimal.Zero,
	}

	err := s.store.InTransaction(ctx, func(tx ports.Store) error {
		lots, err := tx.FindOpenLots(ctx, userID, symbol)
		if err != nil {
			return err
		}
		if len(lots) == 0 {
			return fmt.Errorf("%w: no open lots for symbol %s", ports.ErrNotFound, symbol)
		}

		remaining := qtyToClose
		for _, lot := range lots {
			if remaining <= 0 {
				break
			}
			openQty := lot.OpenQuantity()
			if openQty <= 0 {
				continue
			}

			portion := remaining
			if openQty < portion {
				portion = openQty
			}

			closure := &domain.TradeClosure{
				TradeID:        lot.ID,
				ClosedQuantity: portion,
				ExitPrice:      exitPrice,
				ExitDate:       exitDate,
				Notes:          closureNotes,
			}
			if _, err := tx.CreateClosure(ctx, closure); err != nil {
				return err
			}

			remaining -= portion
			result.Closed += portion
			result.AffectedTrades = append(result.AffectedTrades, lot.ID)
			qty := decimal.NewFromInt(portion)
			result.GrossProceeds = result.GrossProceeds.Add(exitPrice.Mul(qty))
			result.EntryCost = result.EntryCost.Add(lot.EntryPrice.Mul(qty))

			// A fully consumed lot gets its own exit facts stamped.
			if portion == openQty {
				lot.ExitPrice = &exitPrice
				exit := exitDate
				lot.ExitDate = &exit
				if err := tx.UpdateTrade(ctx, lot); err != nil {
					return err
				}
			}
		}

		result.Leftover = remaining
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.GrossPnL = result.GrossProceeds.Sub(result.EntryCost)
	if result.Leftover > 0 {
		result.Message = "Closed partially: not enough open lots"
	} else {
		result.Message = "FIFO close completed"
	}

	s.logger.Info(ctx, "FIFO close executed", map[string]interface{}{
		"symbol":   symbol,
		"closed":   result.Closed,
		"leftover": result.Leftover,
		"lots":     len(result.AffectedTrades),
	})
	return result, nil
}

// ClosePart records a partial closure against one specific trade, by id
// rather than FIFO allocation.
func (s *TradeService) ClosePart(ctx context.Context, userID, tradeID int64, qty int64, exitPrice decimal.Decimal, exitDate time.Time, notes string) (*domain.Trade, error) {
	if qty <= 0 {
		return nil, domain.Invalid("quantity", "must be positive")
	}
	if exitPrice.Sign() <= 0 {
		return nil, domain.Invalid("exitPrice", "must be positive")
	}
	exitDate = domain.DateOnly(exitDate)

	var updated *domain.Trade
	err := s.store.InTransaction(ctx, func(tx ports.Store) error {
		trade, err := tx.FindTradeByID(ctx, tradeID, userID)
		if err != nil {
			return err
		}
		if trade == nil {
			return fmt.Errorf("%w: trade %d", ports.ErrNotFound, tradeID)
		}
		openQty := trade.OpenQuantity()
		if qty > openQty {
			return domain.Invalid("quantity", fmt.Sprintf("exceeds open quantity %d", openQty))
		}

		closure := &domain.TradeClosure{
			TradeID:        trade.ID,
			ClosedQuantity: qty,
			ExitPrice:      exitPrice,
			ExitDate:       exitDate,
			Notes:          notes,
		}
		id, err := tx.CreateClosure(ctx, closure)
		if err != nil {
			return err
		}
		closure.ID = id
		trade.Closures = append(trade.Closures, closure)

		if trade.OpenQuantity() == 0 {
			trade.ExitPrice = &exitPrice
			exit := exitDate
			trade.ExitDate = &exit
			if err := tx.UpdateTrade(ctx, trade); err != nil {
				return err
			}
		}
		updated = trade
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddFinancingEvent records a financing event and applies its immediate
// effect to the trade: a repayment shrinks the borrowed amount, a top-up
// grows the collateral, a rate change replaces the base rate going
// forward (the accrual integral picks the change up from its date).
func (s *TradeService) AddFinancingEvent(ctx context.Context, userID, tradeID int64, draft FinancingEventDraft) (*domain.Trade, error) {
	if draft.EventType != domain.EventRateChange &&
		draft.EventType != domain.EventRepayment &&
		draft.EventType != domain.EventCollateralTopup {
		return nil, domain.Invalid("eventType", "unknown event type")
	}
	if draft.EventType == domain.EventRateChange && draft.Rate == nil {
		return nil, domain.Invalid("rate", "required for a rate change")
	}

	eventDate := domain.DateOnly(s.now())
	if draft.EventDate != nil {
		eventDate = domain.DateOnly(*draft.EventDate)
	}

	var updated *domain.Trade
	err := s.store.InTransaction(ctx, func(tx ports.Store) error {
		trade, err := tx.FindTradeByID(ctx, tradeID, userID)
		if err != nil {
			return err
		}
		if trade == nil {
			return fmt.Errorf("%w: trade %d", ports.ErrNotFound, tradeID)
		}

		event := &domain.FinancingEvent{
			TradeID:      trade.ID,
			EventDate:    eventDate,
			EventType:    draft.EventType,
			Rate:         draft.Rate,
			AmountChange: draft.AmountChange,
			Notes:        draft.Notes,
		}
		id, err := tx.CreateFinancingEvent(ctx, event)
		if err != nil {
			return err
		}
		event.ID = id
		trade.FinancingEvents = append(trade.FinancingEvents, event)

		switch {
		case draft.EventType == domain.EventRepayment && draft.AmountChange != nil:
			borrowed := decimal.Zero
			if trade.BorrowedAmount != nil {
				borrowed = *trade.BorrowedAmount
			}
			next := clampZero(borrowed.Sub(*draft.AmountChange)).Round(domain.MoneyScale)
			trade.BorrowedAmount = &next
		case draft.EventType == domain.EventCollateralTopup && draft.AmountChange != nil:
			collateral := decimal.Zero
			if trade.CollateralAmount != nil {
				collateral = *trade.CollateralAmount
			}
			next := collateral.Add(*draft.AmountChange).Round(domain.MoneyScale)
			trade.CollateralAmount = &next
		case draft.EventType == domain.EventRateChange:
			rate := draft.Rate.Round(domain.RateScale)
			trade.MarginRate = rate
		}

		if err := tx.UpdateTrade(ctx, trade); err != nil {
			return err
		}
		updated = trade
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Import opens a batch of drafts, collecting per-row failures instead of
// aborting the whole batch.
func (s *TradeService) Import(ctx context.Context, userID, portfolioID int64, drafts []TradeDraft) (*ImportResult, error) {
	if len(drafts) == 0 {
		return nil, domain.Invalid("trades", "list is empty")
	}
	if _, err := s.requireActivePortfolio(ctx, portfolioID, userID); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, draft := range drafts {
		trade, err := s.Open(ctx, userID, portfolioID, draft)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Index: i, Reason: err.Error()})
			continue
		}
		result.Imported++
		result.TradeIDs = append(result.TradeIDs, trade.ID)
	}

	s.logger.Info(ctx, "Bulk import finished", map[string]interface{}{
		"imported": result.Imported,
		"failed":   result.Failed,
	})
	return result, nil
}

// Get loads one trade with its closures and financing events.
func (s *TradeService) Get(ctx context.Context, userID, tradeID int64) (*domain.Trade, error) {
	trade, err := s.store.FindTradeByID(ctx, tradeID, userID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: trade %d", ports.ErrNotFound, tradeID)
	}
	return trade, nil
}

// List returns the user's trades, scoped to one portfolio when
// portfolioID is non-zero.
func (s *TradeService) List(ctx context.Context, userID, portfolioID int64) ([]*domain.Trade, error) {
	if portfolioID != 0 {
		return s.store.FindTradesByPortfolio(ctx, portfolioID, userID)
	}
	return s.store.FindTradesByUser(ctx, userID)
}

// Update rewrites a trade's mutable fields after re-normalizing the
// financing triple against the new price and quantity.
func (s *TradeService) Update(ctx context.Context, userID int64, trade *domain.Trade) (*domain.Trade, error) {
	existing, err := s.Get(ctx, userID, trade.ID)
	if err != nil {
		return nil, err
	}
	trade.UserID = userID
	trade.PortfolioID = existing.PortfolioID
	if trade.EntryPrice.Sign() <= 0 {
		return nil, domain.Invalid("entryPrice", "must be positive")
	}
	if trade.Quantity <= 0 {
		return nil, domain.Invalid("quantity", "must be positive")
	}
	normalizeFinancing(trade)
	if err := s.store.UpdateTrade(ctx, trade); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, trade.ID)
}

// Delete removes a trade together with its closures and financing events.
func (s *TradeService) Delete(ctx context.Context, userID, tradeID int64) error {
	return s.store.DeleteTrade(ctx, tradeID, userID)
}

func (s *TradeService) requireActivePortfolio(ctx context.Context, portfolioID, userID int64) (*domain.Portfolio, error) {
	if portfolioID == 0 {
		return nil, domain.Invalid("portfolioId", "must be set")
	}
	portfolio, err := s.store.FindPortfolio(ctx, portfolioID, userID)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, fmt.Errorf("%w: portfolio %d", ports.ErrNotFound, portfolioID)
	}
	if !portfolio.IsActive {
		return nil, fmt.Errorf("%w: portfolio %d", ports.ErrPortfolioInactive, portfolioID)
	}
	return portfolio, nil
}
