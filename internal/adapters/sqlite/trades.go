package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

const tradeColumns = `id, portfolio_id, user_id, symbol, entry_price, exit_price, quantity,
	entry_date, exit_date, margin_rate, leverage, borrowed_amount, collateral_amount,
	maintenance_margin, rate_type, financing_currency, notes`

// CreateTrade saves a new trade and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, t *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (portfolio_id, user_id, symbol, entry_price, exit_price, quantity,
		entry_date, exit_date, margin_rate, leverage, borrowed_amount, collateral_amount,
		maintenance_margin, rate_type, financing_currency, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		t.PortfolioID, t.UserID, t.Symbol, decStr(t.EntryPrice), nullDecStr(t.ExitPrice), t.Quantity,
		dateStr(t.EntryDate), nullDateStr(t.ExitDate), decStr(t.MarginRate), nullDecStr(t.Leverage),
		nullDecStr(t.BorrowedAmount), nullDecStr(t.CollateralAmount), nullDecStr(t.MaintenanceMargin),
		string(t.RateType), t.FinancingCurrency, t.Notes)
	if err != nil {
		return 0, fmt.Errorf("%w: insert trade for symbol %s: %v", ports.ErrQueryFailed, t.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: trade insert id: %v", ports.ErrQueryFailed, err)
	}
	t.ID = id
	return id, nil
}

// UpdateTrade rewrites a trade's mutable fields.
func (r *Repository) UpdateTrade(ctx context.Context, t *domain.Trade) error {
	const query = `
	UPDATE trades SET symbol = ?, entry_price = ?, exit_price = ?, quantity = ?,
		entry_date = ?, exit_date = ?, margin_rate = ?, leverage = ?, borrowed_amount = ?,
		collateral_amount = ?, maintenance_margin = ?, rate_type = ?, financing_currency = ?, notes = ?
	WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		t.Symbol, decStr(t.EntryPrice), nullDecStr(t.ExitPrice), t.Quantity,
		dateStr(t.EntryDate), nullDateStr(t.ExitDate), decStr(t.MarginRate), nullDecStr(t.Leverage),
		nullDecStr(t.BorrowedAmount), nullDecStr(t.CollateralAmount), nullDecStr(t.MaintenanceMargin),
		string(t.RateType), t.FinancingCurrency, t.Notes,
		t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("%w: update trade %d: %v", ports.ErrUpdateFailed, t.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: trade %d", ports.ErrNotFound, t.ID)
	}
	return nil
}

// DeleteTrade removes a trade; closures and financing events cascade.
func (r *Repository) DeleteTrade(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("%w: delete trade %d: %v", ports.ErrDeleteFailed, id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: trade %d", ports.ErrNotFound, id)
	}
	return nil
}

// FindTradeByID loads one trade with its closures and financing events.
// Returns nil, nil when absent.
func (r *Repository) FindTradeByID(ctx context.Context, id, userID int64) (*domain.Trade, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find trade %d: %v", ports.ErrQueryFailed, id, err)
	}
	if err := r.loadChildren(ctx, []*domain.Trade{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// FindTradesByUser loads all of a user's trades, children included.
func (r *Repository) FindTradesByUser(ctx context.Context, userID int64) ([]*domain.Trade, error) {
	return r.findTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE user_id = ? ORDER BY entry_date DESC, id DESC`, userID)
}

// FindTradesByPortfolio loads one portfolio's trades, children included.
func (r *Repository) FindTradesByPortfolio(ctx context.Context, portfolioID, userID int64) ([]*domain.Trade, error) {
	return r.findTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE portfolio_id = ? AND user_id = ? ORDER BY entry_date DESC, id DESC`,
		portfolioID, userID)
}

// FindOpenLots loads open trades for (user, symbol) ordered oldest first.
// Ascending id breaks same-day ties so FIFO stays deterministic.
func (r *Repository) FindOpenLots(ctx context.Context, userID int64, symbol string) ([]*domain.Trade, error) {
	return r.findTrades(ctx,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE user_id = ? AND symbol = ? AND exit_date IS NULL
		 ORDER BY entry_date ASC, id ASC`, userID, symbol)
}

// ListOpenSymbols returns the distinct symbols that still have open lots.
func (r *Repository) ListOpenSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM trades WHERE exit_date IS NULL ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("%w: list open symbols: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%w: scan symbol: %v", ports.ErrQueryFailed, err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// CreateClosure records one partial closure.
func (r *Repository) CreateClosure(ctx context.Context, c *domain.TradeClosure) (int64, error) {
	const query = `
	INSERT INTO trade_closures (trade_id, closed_quantity, exit_price, exit_date, notes)
	VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		c.TradeID, c.ClosedQuantity, decStr(c.ExitPrice), dateStr(c.ExitDate), c.Notes)
	if err != nil {
		return 0, fmt.Errorf("%w: insert closure for trade %d: %v", ports.ErrQueryFailed, c.TradeID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: closure insert id: %v", ports.ErrQueryFailed, err)
	}
	c.ID = id
	return id, nil
}

// CreateFinancingEvent records one financing event.
func (r *Repository) CreateFinancingEvent(ctx context.Context, e *domain.FinancingEvent) (int64, error) {
	const query = `
	INSERT INTO financing_events (trade_id, event_date, event_type, rate, amount_change, notes)
	VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		e.TradeID, dateStr(e.EventDate), string(e.EventType), nullDecStr(e.Rate), nullDecStr(e.AmountChange), e.Notes)
	if err != nil {
		return 0, fmt.Errorf("%w: insert financing event for trade %d: %v", ports.ErrQueryFailed, e.TradeID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: financing event insert id: %v", ports.ErrQueryFailed, err)
	}
	e.ID = id
	return id, nil
}

func (r *Repository) findTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query trades: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan trade: %v", ports.ErrQueryFailed, err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate trades: %v", ports.ErrQueryFailed, err)
	}
	if err := r.loadChildren(ctx, trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// loadChildren attaches closures and financing events to the given trades.
// Loaded per trade: the diary's portfolios are small enough that an IN-list
// optimization would not pay for its complexity.
func (r *Repository) loadChildren(ctx context.Context, trades []*domain.Trade) error {
	for _, t := range trades {
		closures, err := r.findClosures(ctx, t.ID)
		if err != nil {
			return err
		}
		t.Closures = closures

		events, err := r.findFinancingEvents(ctx, t.ID)
		if err != nil {
			return err
		}
		t.FinancingEvents = events
	}
	return nil
}

func (r *Repository) findClosures(ctx context.Context, tradeID int64) ([]*domain.TradeClosure, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trade_id, closed_quantity, exit_price, exit_date, notes
		 FROM trade_closures WHERE trade_id = ? ORDER BY exit_date ASC, id ASC`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("%w: query closures for trade %d: %v", ports.ErrQueryFailed, tradeID, err)
	}
	defer rows.Close()

	var closures []*domain.TradeClosure
	for rows.Next() {
		var (
			c         domain.TradeClosure
			priceStr  string
			dateField string
		)
		if err := rows.Scan(&c.ID, &c.TradeID, &c.ClosedQuantity, &priceStr, &dateField, &c.Notes); err != nil {
			return nil, fmt.Errorf("%w: scan closure: %v", ports.ErrQueryFailed, err)
		}
		if c.ExitPrice, err = parseDec(priceStr); err != nil {
			return nil, fmt.Errorf("%w: closure %d: %v", ports.ErrQueryFailed, c.ID, err)
		}
		if c.ExitDate, err = parseDate(dateField); err != nil {
			return nil, fmt.Errorf("%w: closure %d: %v", ports.ErrQueryFailed, c.ID, err)
		}
		closures = append(closures, &c)
	}
	return closures, rows.Err()
}

func (r *Repository) findFinancingEvents(ctx context.Context, tradeID int64) ([]*domain.FinancingEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trade_id, event_date, event_type, rate, amount_change, notes
		 FROM financing_events WHERE trade_id = ? ORDER BY event_date ASC, id ASC`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("%w: query financing events for trade %d: %v", ports.ErrQueryFailed, tradeID, err)
	}
	defer rows.Close()

	var events []*domain.FinancingEvent
	for rows.Next() {
		var (
			e         domain.FinancingEvent
			dateField string
			eventType string
			rate      sql.NullString
			amount    sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TradeID, &dateField, &eventType, &rate, &amount, &e.Notes); err != nil {
			return nil, fmt.Errorf("%w: scan financing event: %v", ports.ErrQueryFailed, err)
		}
		e.EventType = domain.FinancingEventType(eventType)
		if e.EventDate, err = parseDate(dateField); err != nil {
			return nil, fmt.Errorf("%w: financing event %d: %v", ports.ErrQueryFailed, e.ID, err)
		}
		if e.Rate, err = parseNullDec(rate); err != nil {
			return nil, fmt.Errorf("%w: financing event %d: %v", ports.ErrQueryFailed, e.ID, err)
		}
		if e.AmountChange, err = parseNullDec(amount); err != nil {
			return nil, fmt.Errorf("%w: financing event %d: %v", ports.ErrQueryFailed, e.ID, err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*domain.Trade, error) {
	var (
		t           domain.Trade
		entryPrice  string
		exitPrice   sql.NullString
		entryDate   string
		exitDate    sql.NullString
		marginRate  string
		leverage    sql.NullString
		borrowed    sql.NullString
		collateral  sql.NullString
		maintenance sql.NullString
		rateType    string
	)
	err := s.Scan(&t.ID, &t.PortfolioID, &t.UserID, &t.Symbol, &entryPrice, &exitPrice, &t.Quantity,
		&entryDate, &exitDate, &marginRate, &leverage, &borrowed, &collateral,
		&maintenance, &rateType, &t.FinancingCurrency, &t.Notes)
	if err != nil {
		return nil, err
	}

	if t.EntryPrice, err = parseDec(entryPrice); err != nil {
		return nil, err
	}
	if t.ExitPrice, err = parseNullDec(exitPrice); err != nil {
		return nil, err
	}
	if t.EntryDate, err = parseDate(entryDate); err != nil {
		return nil, err
	}
	if t.ExitDate, err = parseNullDate(exitDate); err != nil {
		return nil, err
	}
	if t.MarginRate, err = parseDec(marginRate); err != nil {
		return nil, err
	}
	if t.Leverage, err = parseNullDec(leverage); err != nil {
		return nil, err
	}
	if t.BorrowedAmount, err = parseNullDec(borrowed); err != nil {
		return nil, err
	}
	if t.CollateralAmount, err = parseNullDec(collateral); err != nil {
		return nil, err
	}
	if t.MaintenanceMargin, err = parseNullDec(maintenance); err != nil {
		return nil, err
	}
	t.RateType = domain.FinancingRateType(rateType)
	return &t, nil
}
