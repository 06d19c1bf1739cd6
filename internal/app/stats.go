package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

// quoteGetter is the slice of the quote cache the stats fold needs. A nil
// getter simply disables unrealized PnL figures.
type quoteGetter interface {
	GetPrice(ctx context.Context, ticker string, ttl time.Duration) *domain.Quote
}

// StatsService computes the read-side views: open positions, portfolio
// stats, and closed-trade analytics. All folds are pure over the loaded
// trades; only unrealized PnL touches the quote cache, and a quote outage
// degrades those figures to partial sums instead of failing the call.
type StatsService struct {
	store    ports.Store
	quotes   quoteGetter
	quoteTTL time.Duration
	logger   ports.Logger
	now      func() time.Time
}

// NewStatsService creates the statistics service. quotes may be nil.
func NewStatsService(store ports.Store, quotes quoteGetter, quoteTTL time.Duration, logger ports.Logger) (*StatsService, error) {
	if store == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for StatsService")
	}
	if quoteTTL <= 0 {
		quoteTTL = 10 * time.Minute
	}
	return &StatsService{store: store, quotes: quotes, quoteTTL: quoteTTL, logger: logger, now: time.Now}, nil
}

func (s *StatsService) loadTrades(ctx context.Context, userID, portfolioID int64) ([]*domain.Trade, error) {
	if portfolioID != 0 {
		return s.store.FindTradesByPortfolio(ctx, portfolioID, userID)
	}
	return s.store.FindTradesByUser(ctx, userID)
}

// OpenPositions lists the user's open margin lots with exposure, LTV,
// today's effective rate and daily interest.
func (s *StatsService) OpenPositions(ctx context.Context, userID, portfolioID int64) ([]domain.OpenPosition, error) {
	trades, err := s.loadTrades(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	today := domain.DateOnly(s.now())
	positions := make([]domain.OpenPosition, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			continue
		}
		exposure := t.PositionCost()
		borrowed := t.Principal()

		ltv := decimal.Zero
		if exposure.Sign() > 0 {
			ltv = borrowed.DivRound(exposure, domain.CalcScale).
				Mul(decimal.NewFromInt(100)).Round(domain.MoneyScale)
		}

		daily := t.DailyInterestAmount(today)
		rate := effectiveRate(daily, borrowed, t.RateAsOf(today))

		heldDays := domain.DaysBetween(t.EntryDate, today)
		if heldDays < 0 {
			heldDays = 0
		}

		positions = append(positions, domain.OpenPosition{
			TradeID:           t.ID,
			Symbol:            t.Symbol,
			EntryPrice:        t.EntryPrice,
			Quantity:          t.Quantity,
			EntryDate:         t.EntryDate,
			Borrowed:          borrowed.Round(domain.MoneyScale),
			Exposure:          exposure.Round(domain.MoneyScale),
			LTV:               ltv,
			Rate:              rate,
			InterestPerDay:    daily,
			MaintenanceMargin: t.MaintenanceMargin,
			HeldDays:          heldDays,
		})
	}
	return positions, nil
}

// effectiveRate back-derives the annual percentage rate from the rounded
// daily interest amount so the displayed rate matches the charged money.
// Falls back to the nominal rate on a zero principal.
func effectiveRate(daily, borrowed, nominal decimal.Decimal) decimal.Decimal {
	if daily.Sign() > 0 && borrowed.Sign() > 0 {
		return daily.Mul(decimal.NewFromInt(365)).Mul(decimal.NewFromInt(100)).
			DivRound(borrowed, domain.MoneyScale)
	}
	return nominal.Round(domain.MoneyScale)
}

// PortfolioStats folds the user's margin trades into portfolio-level
// totals. Unrealized figures cover only the positions a live quote was
// available for.
func (s *StatsService) PortfolioStats(ctx context.Context, userID, portfolioID int64) (*domain.MarginStats, error) {
	trades, err := s.loadTrades(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	today := domain.DateOnly(s.now())
	stats := &domain.MarginStats{}
	weightedRate := decimal.Zero
	weight := decimal.Zero

	for _, t := range trades {
		exposure := t.PositionCost()
		borrowed := t.Principal()
		daily := t.DailyInterestAmount(today)
		rate := effectiveRate(daily, borrowed, t.RateAsOf(today))
		totalInterest := t.TotalInterest(today)

		if !t.IsClosed() {
			stats.OpenCount++
			stats.TotalCostOpen = stats.TotalCostOpen.Add(exposure)
			stats.TotalSharesOpen += t.Quantity
			stats.BorrowedTotal = stats.BorrowedTotal.Add(borrowed)
			weightedRate = weightedRate.Add(rate.Mul(borrowed))
			weight = weight.Add(borrowed)
			stats.TotalInterestDaily = stats.TotalInterestDaily.Add(daily)
			stats.TotalInterestMonthly = stats.TotalInterestMonthly.Add(daily.Mul(decimal.NewFromInt(30)))

			if quote := s.getQuote(ctx, t.Symbol); quote != nil {
				potential := quote.Price.Sub(t.EntryPrice).Mul(decimal.NewFromInt(t.Quantity))
				stats.PotentialProfit = stats.PotentialProfit.Add(potential)
				stats.PotentialProfitAfterInterest = stats.PotentialProfitAfterInterest.Add(potential.Sub(totalInterest))
			}
		} else {
			stats.ClosedCount++
			if t.ExitPrice != nil {
				realized := t.ExitPrice.Sub(t.EntryPrice).Mul(decimal.NewFromInt(t.Quantity))
				stats.TotalProfit = stats.TotalProfit.Add(realized)
			}
			stats.TotalInterestPaid = stats.TotalInterestPaid.Add(totalInterest)
		}
		stats.TotalAccruedInterest = stats.TotalAccruedInterest.Add(totalInterest)
	}

	if weight.Sign() > 0 {
		stats.AvgRate = weightedRate.DivRound(weight, domain.MoneyScale)
	}
	stats.TotalInterestYearly = stats.TotalInterestDaily.Mul(decimal.NewFromInt(365))
	stats.TotalOverallProfitAfterInterest = stats.TotalProfit.Sub(stats.TotalInterestPaid)
	stats.TotalOverallProfit = stats.TotalProfit.Add(stats.PotentialProfit)
	stats.TotalOverallProfitNet = stats.TotalProfit.Sub(stats.TotalInterestPaid).Add(stats.PotentialProfitAfterInterest)

	roundStats(stats)
	return stats, nil
}

func roundStats(st *domain.MarginStats) {
	st.TotalCostOpen = st.TotalCostOpen.Round(domain.MoneyScale)
	st.BorrowedTotal = st.BorrowedTotal.Round(domain.MoneyScale)
	st.AvgRate = st.AvgRate.Round(domain.MoneyScale)
	st.TotalInterestDaily = st.TotalInterestDaily.Round(domain.MoneyScale)
	st.TotalInterestMonthly = st.TotalInterestMonthly.Round(domain.MoneyScale)
	st.TotalInterestYearly = st.TotalInterestYearly.Round(domain.MoneyScale)
	st.TotalAccruedInterest = st.TotalAccruedInterest.Round(domain.MoneyScale)
	st.TotalInterestPaid = st.TotalInterestPaid.Round(domain.MoneyScale)
	st.TotalProfit = st.TotalProfit.Round(domain.MoneyScale)
	st.TotalOverallProfitAfterInterest = st.TotalOverallProfitAfterInterest.Round(domain.MoneyScale)
	st.PotentialProfit = st.PotentialProfit.Round(domain.MoneyScale)
	st.PotentialProfitAfterInterest = st.PotentialProfitAfterInterest.Round(domain.MoneyScale)
	st.TotalOverallProfit = st.TotalOverallProfit.Round(domain.MoneyScale)
	st.TotalOverallProfitNet = st.TotalOverallProfitNet.Round(domain.MoneyScale)
}

func (s *StatsService) getQuote(ctx context.Context, symbol string) *domain.Quote {
	if s.quotes == nil {
		return nil
	}
	return s.quotes.GetPrice(ctx, symbol, s.quoteTTL)
}

// analyticsWindow applies the date filter used by the analytics views:
// closed trades match on exit date, open ones on entry date.
func analyticsWindow(trades []*domain.Trade, from, to *time.Time) []*domain.Trade {
	if from == nil && to == nil {
		return trades
	}
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		date := t.EntryDate
		if t.ExitDate != nil {
			date = *t.ExitDate
		}
		if from != nil && date.Before(domain.DateOnly(*from)) {
			continue
		}
		if to != nil && date.After(domain.DateOnly(*to)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// AnalyticsSummary aggregates closed-trade outcomes over the date window.
func (s *StatsService) AnalyticsSummary(ctx context.Context, userID, portfolioID int64, from, to *time.Time) (*domain.AnalyticsSummary, error) {
	trades, err := s.loadTrades(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	trades = analyticsWindow(trades, from, to)

	today := domain.DateOnly(s.now())
	summary := &domain.AnalyticsSummary{TotalTrades: len(trades)}
	for _, t := range trades {
		profit := t.Profit(today)
		if profit == nil {
			continue
		}
		summary.ClosedTrades++
		if profit.Sign() > 0 {
			summary.WinningTrades++
		}
		summary.TotalProfit = summary.TotalProfit.Add(*profit)
	}
	if summary.ClosedTrades > 0 {
		summary.WinRate = decimal.NewFromInt(int64(summary.WinningTrades)).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(int64(summary.ClosedTrades)), domain.MoneyScale)
	}
	summary.TotalProfit = summary.TotalProfit.Round(domain.MoneyScale)
	return summary, nil
}

// MonthlyAnalytics buckets realized profit by closing month, including
// zero-profit months so charts get a continuous axis. The default window
// starts at January of last year.
func (s *StatsService) MonthlyAnalytics(ctx context.Context, userID, portfolioID int64, from, to *time.Time) ([]domain.MonthlyProfit, error) {
	trades, err := s.loadTrades(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	today := domain.DateOnly(s.now())
	start := time.Date(today.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := today
	if from != nil {
		start = domain.DateOnly(*from)
	}
	if to != nil {
		end = domain.DateOnly(*to)
	}

	buckets := make(map[string]decimal.Decimal)
	for cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		buckets[cur.Format("2006-01")] = decimal.Zero
	}

	for _, t := range trades {
		if t.ExitDate == nil {
			continue
		}
		exit := domain.DateOnly(*t.ExitDate)
		if exit.Before(start) || exit.After(end) {
			continue
		}
		profit := t.Profit(today)
		if profit == nil {
			continue
		}
		month := exit.Format("2006-01")
		buckets[month] = buckets[month].Add(*profit)
	}

	out := make([]domain.MonthlyProfit, 0, len(buckets))
	for month, profit := range buckets {
		out = append(out, domain.MonthlyProfit{Month: month, Profit: profit.Round(domain.MoneyScale)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// SymbolAnalytics groups realized profit and trade count by symbol over
// the date window, most profitable first.
func (s *StatsService) SymbolAnalytics(ctx context.Context, userID, portfolioID int64, from, to *time.Time) ([]domain.SymbolProfit, error) {
	trades, err := s.loadTrades(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	trades = analyticsWindow(trades, from, to)

	today := domain.DateOnly(s.now())
	profits := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, t := range trades {
		counts[t.Symbol]++
		if profit := t.Profit(today); profit != nil {
			profits[t.Symbol] = profits[t.Symbol].Add(*profit)
		}
	}

	out := make([]domain.SymbolProfit, 0, len(counts))
	for symbol, count := range counts {
		out = append(out, domain.SymbolProfit{
			Symbol: symbol,
			Profit: profits[symbol].Round(domain.MoneyScale),
			Count:  count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Profit.Equal(out[j].Profit) {
			return out[i].Profit.GreaterThan(out[j].Profit)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}
