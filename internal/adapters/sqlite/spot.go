package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

const spotColumns = `id, portfolio_id, user_id, company, ticker, tx_type, price, quantity, amount, trade_date, note`

// CreateSpotTransaction saves a new spot transaction and returns its ID.
func (r *Repository) CreateSpotTransaction(ctx context.Context, tx *domain.SpotTransaction) (int64, error) {
	const query = `
	INSERT INTO spot_transactions (portfolio_id, user_id, company, ticker, tx_type, price, quantity, amount, trade_date, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		tx.PortfolioID, tx.UserID, tx.Company, tx.Ticker, string(tx.Type),
		nullDecStr(tx.Price), nullDecStr(tx.Quantity), decStr(tx.Amount), dateStr(tx.TradeDate), tx.Note)
	if err != nil {
		return 0, fmt.Errorf("%w: insert spot transaction for %s: %v", ports.ErrQueryFailed, tx.Ticker, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: spot transaction insert id: %v", ports.ErrQueryFailed, err)
	}
	tx.ID = id
	return id, nil
}

// UpdateSpotTransaction rewrites a spot transaction's fields.
func (r *Repository) UpdateSpotTransaction(ctx context.Context, tx *domain.SpotTransaction) error {
	const query = `
	UPDATE spot_transactions SET company = ?, ticker = ?, tx_type = ?, price = ?, quantity = ?,
		amount = ?, trade_date = ?, note = ?
	WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		tx.Company, tx.Ticker, string(tx.Type), nullDecStr(tx.Price), nullDecStr(tx.Quantity),
		decStr(tx.Amount), dateStr(tx.TradeDate), tx.Note, tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("%w: update spot transaction %d: %v", ports.ErrUpdateFailed, tx.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: spot transaction %d", ports.ErrNotFound, tx.ID)
	}
	return nil
}

// DeleteSpotTransaction removes one spot transaction.
func (r *Repository) DeleteSpotTransaction(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM spot_transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("%w: delete spot transaction %d: %v", ports.ErrDeleteFailed, id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: spot transaction %d", ports.ErrNotFound, id)
	}
	return nil
}

// FindSpotTransaction returns nil, nil when absent.
func (r *Repository) FindSpotTransaction(ctx context.Context, id, userID int64) (*domain.SpotTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+spotColumns+` FROM spot_transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanSpotTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find spot transaction %d: %v", ports.ErrQueryFailed, id, err)
	}
	return tx, nil
}

// FindSpotTransactionsByUser lists a user's spot transactions, newest first.
func (r *Repository) FindSpotTransactionsByUser(ctx context.Context, userID int64) ([]*domain.SpotTransaction, error) {
	return r.findSpotTransactions(ctx,
		`SELECT `+spotColumns+` FROM spot_transactions WHERE user_id = ? ORDER BY trade_date DESC, id DESC`, userID)
}

// FindSpotTransactionsByPortfolio lists one portfolio's spot transactions.
func (r *Repository) FindSpotTransactionsByPortfolio(ctx context.Context, portfolioID, userID int64) ([]*domain.SpotTransaction, error) {
	return r.findSpotTransactions(ctx,
		`SELECT `+spotColumns+` FROM spot_transactions WHERE portfolio_id = ? AND user_id = ? ORDER BY trade_date DESC, id DESC`,
		portfolioID, userID)
}

func (r *Repository) findSpotTransactions(ctx context.Context, query string, args ...interface{}) ([]*domain.SpotTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query spot transactions: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var txs []*domain.SpotTransaction
	for rows.Next() {
		tx, err := scanSpotTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan spot transaction: %v", ports.ErrQueryFailed, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanSpotTransaction(s scanner) (*domain.SpotTransaction, error) {
	var (
		tx        domain.SpotTransaction
		txType    string
		price     sql.NullString
		quantity  sql.NullString
		amount    string
		tradeDate string
	)
	err := s.Scan(&tx.ID, &tx.PortfolioID, &tx.UserID, &tx.Company, &tx.Ticker, &txType,
		&price, &quantity, &amount, &tradeDate, &tx.Note)
	if err != nil {
		return nil, err
	}
	tx.Type = domain.SpotTransactionType(txType)
	if tx.Price, err = parseNullDec(price); err != nil {
		return nil, err
	}
	if tx.Quantity, err = parseNullDec(quantity); err != nil {
		return nil, err
	}
	if tx.Amount, err = parseDec(amount); err != nil {
		return nil, err
	}
	if tx.TradeDate, err = parseDate(tradeDate); err != nil {
		return nil, err
	}
	return &tx, nil
}
