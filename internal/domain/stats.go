package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenPosition is the read-side view of one open margin lot.
type OpenPosition struct {
	TradeID           int64            `json:"id"`
	Symbol            string           `json:"symbol"`
	EntryPrice        decimal.Decimal  `json:"entryPrice"`
	Quantity          int64            `json:"quantity"`
	EntryDate         time.Time        `json:"entryDate"`
	Borrowed          decimal.Decimal  `json:"borrowed"`
	Exposure          decimal.Decimal  `json:"exposure"`
	LTV               decimal.Decimal  `json:"ltv"`
	Rate              decimal.Decimal  `json:"rate"`
	InterestPerDay    decimal.Decimal  `json:"interestPerDay"`
	MaintenanceMargin *decimal.Decimal `json:"maintenanceMargin,omitempty"`
	HeldDays          int64            `json:"heldDays"`
}

// MarginStats is the portfolio-level fold over all margin trades. Potential
// (unrealized) figures are included only for positions where a live quote
// was available; a quote outage degrades them to partial sums, it never
// fails the fold.
type MarginStats struct {
	TotalCostOpen                   decimal.Decimal `json:"totalCostOpen"`
	TotalSharesOpen                 int64           `json:"totalSharesOpen"`
	BorrowedTotal                   decimal.Decimal `json:"borrowedTotal"`
	AvgRate                         decimal.Decimal `json:"avgRate"`
	TotalInterestDaily              decimal.Decimal `json:"totalInterestDaily"`
	TotalInterestMonthly            decimal.Decimal `json:"totalInterestMonthly"`
	TotalInterestYearly             decimal.Decimal `json:"totalInterestYearly"`
	TotalAccruedInterest            decimal.Decimal `json:"totalAccruedInterest"`
	TotalInterestPaid               decimal.Decimal `json:"totalInterestPaid"`
	TotalProfit                     decimal.Decimal `json:"totalProfit"`
	TotalOverallProfitAfterInterest decimal.Decimal `json:"totalOverallProfitAfterInterest"`
	PotentialProfit                 decimal.Decimal `json:"potentialProfit"`
	PotentialProfitAfterInterest    decimal.Decimal `json:"potentialProfitAfterInterest"`
	TotalOverallProfit              decimal.Decimal `json:"totalOverallProfit"`
	TotalOverallProfitNet           decimal.Decimal `json:"totalOverallProfitNet"`
	OpenCount                       int             `json:"openCount"`
	ClosedCount                     int             `json:"closedCount"`
}

// AnalyticsSummary aggregates closed-trade outcomes over a date range.
type AnalyticsSummary struct {
	TotalTrades   int             `json:"totalTrades"`
	ClosedTrades  int             `json:"closedTrades"`
	WinningTrades int             `json:"winningTrades"`
	WinRate       decimal.Decimal `json:"winRate"`
	TotalProfit   decimal.Decimal `json:"totalProfit"`
}

// MonthlyProfit is realized profit bucketed by closing month (YYYY-MM).
type MonthlyProfit struct {
	Month  string          `json:"month"`
	Profit decimal.Decimal `json:"profit"`
}

// SymbolProfit is realized profit and trade count for one symbol.
type SymbolProfit struct {
	Symbol string          `json:"symbol"`
	Profit decimal.Decimal `json:"profit"`
	Count  int             `json:"count"`
}
