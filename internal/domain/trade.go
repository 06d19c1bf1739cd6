package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rounding scales used throughout the accounting code. Money is persisted at
// 2 decimals, rates and leverage at 4; intermediate divisions carry 10
// digits before the final rounding so repeated division does not drift.
const (
	MoneyScale = 2
	RateScale  = 4
	CalcScale  = 10
)

// Trade is one leveraged position (a lot). A trade owns its closures and
// financing events; deleting the trade removes them with it.
type Trade struct {
	ID          int64
	PortfolioID int64
	UserID      int64

	Symbol     string
	EntryPrice decimal.Decimal
	Quantity   int64
	EntryDate  time.Time

	// Exit facts stay nil until the lot is fully consumed. A trade with
	// closures may still carry nil exit fields while partially open;
	// IsClosed is the authoritative check, not ExitDate.
	ExitPrice *decimal.Decimal
	ExitDate  *time.Time

	// MarginRate is the base financing rate in percent per year. Rate
	// changes are layered on top of it as financing events.
	MarginRate        decimal.Decimal
	Leverage          *decimal.Decimal
	BorrowedAmount    *decimal.Decimal
	CollateralAmount  *decimal.Decimal
	MaintenanceMargin *decimal.Decimal
	RateType          FinancingRateType
	FinancingCurrency string

	Notes string

	Closures        []*TradeClosure
	FinancingEvents []*FinancingEvent
}

// PositionCost is entry price times quantity, before any rounding.
func (t *Trade) PositionCost() decimal.Decimal {
	return t.EntryPrice.Mul(decimal.NewFromInt(t.Quantity))
}

// Principal is the amount interest accrues on: the borrowed amount when
// known, otherwise the full position cost (fully financed position).
func (t *Trade) Principal() decimal.Decimal {
	if t.BorrowedAmount != nil {
		return *t.BorrowedAmount
	}
	return t.PositionCost()
}

// OpenQuantity is the quantity not yet consumed by closures. Never negative
// for persisted trades: closures are validated against it before saving.
func (t *Trade) OpenQuantity() int64 {
	var closed int64
	for _, c := range t.Closures {
		closed += c.ClosedQuantity
	}
	return t.Quantity - closed
}

// IsClosed reports whether the whole position has been closed out.
func (t *Trade) IsClosed() bool {
	return t.OpenQuantity() == 0
}

// LeverageValue returns the stored leverage, or derives it from the borrowed
// amount when possible. Nil when the position is fully borrowed (no own
// funds) and no explicit leverage was recorded.
func (t *Trade) LeverageValue() *decimal.Decimal {
	if t.Leverage != nil {
		return t.Leverage
	}
	if t.BorrowedAmount == nil {
		return nil
	}
	cost := t.PositionCost()
	if cost.Sign() <= 0 {
		return nil
	}
	ownFunds := cost.Sub(*t.BorrowedAmount)
	if ownFunds.Sign() <= 0 {
		return nil
	}
	lev := cost.DivRound(ownFunds, RateScale)
	return &lev
}

// LiquidationPrice estimates the price at which equity hits the maintenance
// margin: P*Q*(1-mm) = principal, so P = principal / (Q*(1-mm)).
func (t *Trade) LiquidationPrice() *decimal.Decimal {
	if t.MaintenanceMargin == nil || t.Quantity == 0 {
		return nil
	}
	principal := t.Principal()
	if principal.Sign() <= 0 {
		return nil
	}
	mm := t.MaintenanceMargin.DivRound(decimal.NewFromInt(100), 6)
	denom := decimal.NewFromInt(t.Quantity).Mul(decimal.NewFromInt(1).Sub(mm))
	if denom.Sign() <= 0 {
		return nil
	}
	p := principal.DivRound(denom, RateScale)
	return &p
}

// RateAsOf resolves the financing rate active on the given date: the latest
// RATE_CHANGE event not after it, defaulting to the base margin rate.
func (t *Trade) RateAsOf(asOf time.Time) decimal.Decimal {
	return RateAsOf(t.MarginRate, t.FinancingEvents, asOf)
}

// DailyInterestAmount is the interest one day costs at the rate active on
// the given date, rounded to money scale.
func (t *Trade) DailyInterestAmount(asOf time.Time) decimal.Decimal {
	return DailyInterest(t.Principal(), t.RateAsOf(asOf)).Round(MoneyScale)
}

// TotalInterest is the interest accrued from entry to the trade's exit date,
// or to asOf while the trade is still open.
func (t *Trade) TotalInterest(asOf time.Time) decimal.Decimal {
	end := asOf
	if t.ExitDate != nil {
		end = *t.ExitDate
	}
	return AccruedInterest(t.Principal(), t.MarginRate, t.EntryDate, end, t.FinancingEvents)
}

// Profit is the realized result after financing cost. Nil until both exit
// fields are stamped.
func (t *Trade) Profit(asOf time.Time) *decimal.Decimal {
	if t.ExitPrice == nil || t.ExitDate == nil {
		return nil
	}
	qty := decimal.NewFromInt(t.Quantity)
	priceProfit := t.ExitPrice.Mul(qty).Sub(t.EntryPrice.Mul(qty))
	p := priceProfit.Sub(t.TotalInterest(asOf)).Round(MoneyScale)
	return &p
}

// DailyInterestEntry is one day's financing cost, used for the per-trade
// interest schedule view.
type DailyInterestEntry struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// DailyInterestSchedule lists the per-day interest from entry to exit. Empty
// while the trade is open: the schedule is a settled-cost view.
func (t *Trade) DailyInterestSchedule() []DailyInterestEntry {
	if t.ExitDate == nil {
		return nil
	}
	var out []DailyInterestEntry
	end := DateOnly(*t.ExitDate)
	for d := DateOnly(t.EntryDate); !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, DailyInterestEntry{
			Date:   d,
			Amount: t.DailyInterestAmount(d),
		})
	}
	return out
}
