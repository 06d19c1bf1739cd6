package app

import (
	"context"
	"fmt"
	"strings"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

// PortfolioService manages portfolios. Deletion is a soft deactivate so
// trade history stays intact.
type PortfolioService struct {
	store  ports.Store
	logger ports.Logger
}

// NewPortfolioService creates the portfolio service.
func NewPortfolioService(store ports.Store, logger ports.Logger) (*PortfolioService, error) {
	if store == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for PortfolioService")
	}
	return &PortfolioService{store: store, logger: logger}, nil
}

// Create persists a new active portfolio.
func (s *PortfolioService) Create(ctx context.Context, userID int64, name, pType, currency string) (*domain.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name", "must not be empty")
	}
	if currency == "" {
		currency = "RUB"
	}
	p := &domain.Portfolio{
		UserID:   userID,
		Name:     name,
		Type:     pType,
		Currency: strings.ToUpper(currency),
		IsActive: true,
	}
	id, err := s.store.CreatePortfolio(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	s.logger.Info(ctx, "Portfolio created", map[string]interface{}{"portfolioID": id, "name": name})
	return p, nil
}

// Get loads one portfolio.
func (s *PortfolioService) Get(ctx context.Context, userID, id int64) (*domain.Portfolio, error) {
	p, err := s.store.FindPortfolio(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: portfolio %d", ports.ErrNotFound, id)
	}
	return p, nil
}

// List returns the user's portfolios, active first.
func (s *PortfolioService) List(ctx context.Context, userID int64) ([]*domain.Portfolio, error) {
	return s.store.FindPortfoliosByUser(ctx, userID)
}

// Deactivate soft-deletes a portfolio. Its trades remain readable.
func (s *PortfolioService) Deactivate(ctx context.Context, userID, id int64) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeactivatePortfolio(ctx, id, userID)
}
