package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "margin-diary-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedPortfolio(t *testing.T, repo *Repository) *domain.Portfolio {
	t.Helper()
	p := &domain.Portfolio{UserID: 1, Name: "Margin", Type: "margin", Currency: "RUB", IsActive: true}
	id, err := repo.CreatePortfolio(context.Background(), p)
	require.NoError(t, err)
	p.ID = id
	return p
}

func seedTrade(t *testing.T, repo *Repository, portfolioID int64, symbol string, price string, qty int64, entry time.Time) *domain.Trade {
	t.Helper()
	borrowed := dec(price).Mul(decimal.NewFromInt(qty))
	tr := &domain.Trade{
		PortfolioID:    portfolioID,
		UserID:         1,
		Symbol:         symbol,
		EntryPrice:     dec(price),
		Quantity:       qty,
		EntryDate:      entry,
		MarginRate:     dec("18.25"),
		BorrowedAmount: &borrowed,
		RateType:       domain.RateFixed,
	}
	id, err := repo.CreateTrade(context.Background(), tr)
	require.NoError(t, err)
	tr.ID = id
	return tr
}

func TestRepository_CreateAndFindTrade(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)
	mm := dec("20")
	lev := dec("2.0000")
	collateral := dec("5000.00")
	borrowed := dec("5000.00")
	tr := &domain.Trade{
		PortfolioID:       p.ID,
		UserID:            1,
		Symbol:            "SBER",
		EntryPrice:        dec("100"),
		Quantity:          100,
		EntryDate:         date(2025, 5, 2),
		MarginRate:        dec("18.25"),
		Leverage:          &lev,
		BorrowedAmount:    &borrowed,
		CollateralAmount:  &collateral,
		MaintenanceMargin: &mm,
		RateType:          domain.RateFixed,
		FinancingCurrency: "RUB",
		Notes:             "first lot",
	}
	id, err := repo.CreateTrade(context.Background(), tr)
	require.NoError(t, err)

	got, err := repo.FindTradeByID(context.Background(), id, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SBER", got.Symbol)
	assert.True(t, got.EntryPrice.Equal(dec("100")))
	assert.True(t, got.BorrowedAmount.Equal(dec("5000.00")))
	assert.True(t, got.Leverage.Equal(dec("2")))
	assert.Equal(t, date(2025, 5, 2), got.EntryDate)
	assert.Nil(t, got.ExitDate)
	assert.Equal(t, "first lot", got.Notes)
}

func TestRepository_FindTradeByID_WrongUser(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)
	tr := seedTrade(t, repo, p.ID, "SBER", "100", 10, date(2025, 1, 1))

	got, err := repo.FindTradeByID(context.Background(), tr.ID, 99)
	require.NoError(t, err)
	assert.Nil(t, got, "other users' trades are invisible")
}

func TestRepository_FindOpenLots_Ordering(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)
	newer := seedTrade(t, repo, p.ID, "AAPL", "110", 10, date(2025, 2, 10))
	older := seedTrade(t, repo, p.ID, "AAPL", "100", 10, date(2025, 1, 10))
	seedTrade(t, repo, p.ID, "MSFT", "200", 5, date(2025, 1, 1))

	// A closed lot must not appear.
	closedLot := seedTrade(t, repo, p.ID, "AAPL", "90", 10, date(2024, 12, 1))
	exitPrice := dec("95")
	exitDate := date(2025, 1, 5)
	closedLot.ExitPrice = &exitPrice
	closedLot.ExitDate = &exitDate
	require.NoError(t, repo.UpdateTrade(context.Background(), closedLot))

	lots, err := repo.FindOpenLots(context.Background(), 1, "AAPL")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, older.ID, lots[0].ID, "oldest entry first")
	assert.Equal(t, newer.ID, lots[1].ID)
}

func TestRepository_ClosuresAndEventsLoadWithTrade(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)
	tr := seedTrade(t, repo, p.ID, "SBER", "100", 100, date(2025, 1, 10))

	_, err := repo.CreateClosure(context.Background(), &domain.TradeClosure{
		TradeID:        tr.ID,
		ClosedQuantity: 30,
		ExitPrice:      dec("110"),
		ExitDate:       date(2025, 3, 1),
		Notes:          "FIFO",
	})
	require.NoError(t, err)

	rate := dec("22")
	_, err = repo.CreateFinancingEvent(context.Background(), &domain.FinancingEvent{
		TradeID:   tr.ID,
		EventDate: date(2025, 2, 1),
		EventType: domain.EventRateChange,
		Rate:      &rate,
	})
	require.NoError(t, err)

	got, err := repo.FindTradeByID(context.Background(), tr.ID, 1)
	require.NoError(t, err)
	require.Len(t, got.Closures, 1)
	assert.Equal(t, int64(30), got.Closures[0].ClosedQuantity)
	assert.Equal(t, int64(70), got.OpenQuantity())
	require.Len(t, got.FinancingEvents, 1)
	assert.Equal(t, domain.EventRateChange, got.FinancingEvents[0].EventType)
	assert.True(t, got.FinancingEvents[0].Rate.Equal(dec("22")))
}

func TestRepository_DeleteTradeCascades(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)
	tr := seedTrade(t, repo, p.ID, "SBER", "100", 100, date(2025, 1, 10))
	_, err := repo.CreateClosure(context.Background(), &domain.TradeClosure{
		TradeID:        tr.ID,
		ClosedQuantity: 10,
		ExitPrice:      dec("105"),
		ExitDate:       date(2025, 2, 1),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTrade(context.Background(), tr.ID, 1))

	got, err := repo.FindTradeByID(context.Background(), tr.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int
	err = repo.root.QueryRow("SELECT COUNT(*) FROM trade_closures WHERE trade_id = ?", tr.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "closures are removed with the trade")
}

func TestRepository_DeleteTrade_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.DeleteTrade(context.Background(), 42, 1)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_ListOpenSymbols(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)
	seedTrade(t, repo, p.ID, "SBER", "100", 10, date(2025, 1, 1))
	seedTrade(t, repo, p.ID, "SBER", "105", 10, date(2025, 2, 1))
	seedTrade(t, repo, p.ID, "GAZP", "150", 5, date(2025, 1, 1))

	symbols, err := repo.ListOpenSymbols(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SBER", "GAZP"}, symbols)
}

func TestRepository_InTransactionRollsBack(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)
	boom := assert.AnError
	err := repo.InTransaction(context.Background(), func(tx ports.Store) error {
		_, err := tx.CreateTrade(context.Background(), &domain.Trade{
			PortfolioID: p.ID,
			UserID:      1,
			Symbol:      "SBER",
			EntryPrice:  dec("100"),
			Quantity:    10,
			EntryDate:   date(2025, 1, 1),
			MarginRate:  dec("18"),
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	trades, err := repo.FindTradesByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, trades, "failed transaction leaves nothing behind")
}

func TestRepository_PortfolioLifecycle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)

	require.NoError(t, repo.DeactivatePortfolio(context.Background(), p.ID, 1))

	got, err := repo.FindPortfolio(context.Background(), p.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)

	missing, err := repo.FindPortfolio(context.Background(), 999, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_SpotTransactionRoundTrip(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	p := seedPortfolio(t, repo)
	price := dec("100.50")
	qty := dec("10")
	tx := &domain.SpotTransaction{
		PortfolioID: p.ID,
		UserID:      1,
		Company:     "Apple",
		Ticker:      "AAPL",
		Type:        domain.SpotBuy,
		Price:       &price,
		Quantity:    &qty,
		Amount:      dec("-1005.00"),
		TradeDate:   date(2025, 3, 1),
		Note:        "first buy",
	}
	id, err := repo.CreateSpotTransaction(context.Background(), tx)
	require.NoError(t, err)

	got, err := repo.FindSpotTransaction(context.Background(), id, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.True(t, got.Price.Equal(dec("100.50")))
	assert.True(t, got.Amount.Equal(dec("-1005.00")))
	assert.Equal(t, date(2025, 3, 1), got.TradeDate)

	require.NoError(t, repo.DeleteSpotTransaction(context.Background(), id, 1))
	got, err = repo.FindSpotTransaction(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
