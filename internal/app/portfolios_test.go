package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

func TestPortfolioCreateAndDeactivate(t *testing.T) {
	store := newMemStore()
	svc, err := NewPortfolioService(store, noopLogger{})
	require.NoError(t, err)

	p, err := svc.Create(context.Background(), 1, "Margin RUB", "margin", "rub")
	require.NoError(t, err)
	assert.Equal(t, "RUB", p.Currency)
	assert.True(t, p.IsActive)

	require.NoError(t, svc.Deactivate(context.Background(), 1, p.ID))

	reloaded, err := svc.Get(context.Background(), 1, p.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive, "deactivation is a soft delete")
}

func TestPortfolioCreate_RequiresName(t *testing.T) {
	store := newMemStore()
	svc, err := NewPortfolioService(store, noopLogger{})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, "  ", "margin", "RUB")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPortfolioGet_ScopedToUser(t *testing.T) {
	store := newMemStore()
	p := store.addPortfolio(1, "RUB")
	svc, err := NewPortfolioService(store, noopLogger{})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, p.ID)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
