package app

import (
	"context"
	"sort"
	"sync"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

// memStore is an in-memory ports.Store for service tests. InTransaction
// serializes callers with a mutex, which is enough isolation for the FIFO
// paths under test.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	trades     map[int64]*domain.Trade
	portfolios map[int64]*domain.Portfolio
	spots      map[int64]*domain.SpotTransaction
}

func newMemStore() *memStore {
	return &memStore{
		trades:     make(map[int64]*domain.Trade),
		portfolios: make(map[int64]*domain.Portfolio),
		spots:      make(map[int64]*domain.SpotTransaction),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addPortfolio(userID int64, currency string) *domain.Portfolio {
	p := &domain.Portfolio{ID: m.id(), UserID: userID, Name: "test", Currency: currency, IsActive: true}
	m.portfolios[p.ID] = p
	return p
}

func (m *memStore) CreateTrade(_ context.Context, t *domain.Trade) (int64, error) {
	t.ID = m.id()
	m.trades[t.ID] = t
	return t.ID, nil
}

func (m *memStore) UpdateTrade(_ context.Context, t *domain.Trade) error {
	if _, ok := m.trades[t.ID]; !ok {
		return ports.ErrNotFound
	}
	m.trades[t.ID] = t
	return nil
}

func (m *memStore) DeleteTrade(_ context.Context, id, userID int64) error {
	t, ok := m.trades[id]
	if !ok || t.UserID != userID {
		return ports.ErrNotFound
	}
	delete(m.trades, id)
	return nil
}

func (m *memStore) FindTradeByID(_ context.Context, id, userID int64) (*domain.Trade, error) {
	t, ok := m.trades[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	// Mirror the sqlite adapter's fresh-object-per-read semantics so the
	// services' own appends (e.g. ClosePart) don't double-count against the
	// closure CreateClosure already recorded on the stored trade.
	cp := *t
	cp.Closures = append([]*domain.TradeClosure(nil), t.Closures...)
	cp.FinancingEvents = append([]*domain.FinancingEvent(nil), t.FinancingEvents...)
	return &cp, nil
}

func (m *memStore) FindTradesByUser(_ context.Context, userID int64) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for _, t := range m.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindTradesByPortfolio(_ context.Context, portfolioID, userID int64) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for _, t := range m.trades {
		if t.UserID == userID && t.PortfolioID == portfolioID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindOpenLots(_ context.Context, userID int64, symbol string) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for _, t := range m.trades {
		if t.UserID == userID && t.Symbol == symbol && t.ExitDate == nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) ListOpenSymbols(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, t := range m.trades {
		if t.ExitDate == nil {
			seen[t.Symbol] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) CreateClosure(_ context.Context, c *domain.TradeClosure) (int64, error) {
	c.ID = m.id()
	t := m.trades[c.TradeID]
	t.Closures = append(t.Closures, c)
	return c.ID, nil
}

func (m *memStore) CreateFinancingEvent(_ context.Context, e *domain.FinancingEvent) (int64, error) {
	e.ID = m.id()
	return e.ID, nil
}

func (m *memStore) CreatePortfolio(_ context.Context, p *domain.Portfolio) (int64, error) {
	p.ID = m.id()
	m.portfolios[p.ID] = p
	return p.ID, nil
}

func (m *memStore) FindPortfolio(_ context.Context, id, userID int64) (*domain.Portfolio, error) {
	p, ok := m.portfolios[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return p, nil
}

func (m *memStore) FindPortfoliosByUser(_ context.Context, userID int64) ([]*domain.Portfolio, error) {
	var out []*domain.Portfolio
	for _, p := range m.portfolios {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeactivatePortfolio(_ context.Context, id, userID int64) error {
	p, ok := m.portfolios[id]
	if !ok || p.UserID != userID {
		return ports.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (m *memStore) CreateSpotTransaction(_ context.Context, tx *domain.SpotTransaction) (int64, error) {
	tx.ID = m.id()
	m.spots[tx.ID] = tx
	return tx.ID, nil
}

func (m *memStore) UpdateSpotTransaction(_ context.Context, tx *domain.SpotTransaction) error {
	if _, ok := m.spots[tx.ID]; !ok {
		return ports.ErrNotFound
	}
	m.spots[tx.ID] = tx
	return nil
}

func (m *memStore) DeleteSpotTransaction(_ context.Context, id, userID int64) error {
	tx, ok := m.spots[id]
	if !ok || tx.UserID != userID {
		return ports.ErrNotFound
	}
	delete(m.spots, id)
	return nil
}

func (m *memStore) FindSpotTransaction(_ context.Context, id, userID int64) (*domain.SpotTransaction, error) {
	tx, ok := m.spots[id]
	if !ok || tx.UserID != userID {
		return nil, nil
	}
	return tx, nil
}

func (m *memStore) FindSpotTransactionsByUser(_ context.Context, userID int64) ([]*domain.SpotTransaction, error) {
	var out []*domain.SpotTransaction
	for _, tx := range m.spots {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindSpotTransactionsByPortfolio(_ context.Context, portfolioID, userID int64) ([]*domain.SpotTransaction, error) {
	var out []*domain.SpotTransaction
	for _, tx := range m.spots {
		if tx.UserID == userID && tx.PortfolioID == portfolioID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) InTransaction(_ context.Context, fn func(ports.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

// noopLogger satisfies ports.Logger for tests.
type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...map[string]interface{}) {}
func (noopLogger) Info(context.Context, string, ...map[string]interface{})  {}
func (noopLogger) Warn(context.Context, string, ...map[string]interface{})  {}
func (noopLogger) Error(context.Context, error, string, ...map[string]interface{}) {
}
