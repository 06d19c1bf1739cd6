package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

// CreatePortfolio saves a new portfolio and returns its assigned ID.
func (r *Repository) CreatePortfolio(ctx context.Context, p *domain.Portfolio) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolios (user_id, name, type, currency, is_active) VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.Type, p.Currency, boolToInt(p.IsActive))
	if err != nil {
		return 0, fmt.Errorf("%w: insert portfolio %q: %v", ports.ErrQueryFailed, p.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: portfolio insert id: %v", ports.ErrQueryFailed, err)
	}
	p.ID = id
	return id, nil
}

// FindPortfolio returns nil, nil when the portfolio does not exist or
// belongs to another user.
func (r *Repository) FindPortfolio(ctx context.Context, id, userID int64) (*domain.Portfolio, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, currency, is_active FROM portfolios WHERE id = ? AND user_id = ?`,
		id, userID)
	p, err := scanPortfolio(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find portfolio %d: %v", ports.ErrQueryFailed, id, err)
	}
	return p, nil
}

// FindPortfoliosByUser lists a user's portfolios, active first.
func (r *Repository) FindPortfoliosByUser(ctx context.Context, userID int64) ([]*domain.Portfolio, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, currency, is_active FROM portfolios
		 WHERE user_id = ? ORDER BY is_active DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: query portfolios: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var portfolios []*domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan portfolio: %v", ports.ErrQueryFailed, err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// DeactivatePortfolio soft-deletes: the row stays so trades keep a valid
// reference, is_active drops.
func (r *Repository) DeactivatePortfolio(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE portfolios SET is_active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("%w: deactivate portfolio %d: %v", ports.ErrUpdateFailed, id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: portfolio %d", ports.ErrNotFound, id)
	}
	return nil
}

func scanPortfolio(s scanner) (*domain.Portfolio, error) {
	var (
		p      domain.Portfolio
		active int
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Type, &p.Currency, &active); err != nil {
		return nil, err
	}
	p.IsActive = active != 0
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
