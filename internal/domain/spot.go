package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashTicker is the synthetic ticker tracking net cash movement in spot
// accounting.
const CashTicker = "USD"

// SpotTransaction is one non-margin transaction. Amount is the signed cash
// effect (negative for buys), Price/Quantity are set for BUY and SELL rows.
type SpotTransaction struct {
	ID          int64
	PortfolioID int64
	UserID      int64
	Company     string
	Ticker      string
	Type        SpotTransactionType
	Price       *decimal.Decimal
	Quantity    *decimal.Decimal
	Amount      decimal.Decimal
	TradeDate   time.Time
	Note        string
}

// SpotHolding is the current position in one ticker, folded from BUY/SELL
// rows with running average cost.
type SpotHolding struct {
	Ticker   string          `json:"ticker"`
	Company  string          `json:"company"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
	Invested decimal.Decimal `json:"invested"`
}

// SpotStats summarizes a portfolio's spot activity.
type SpotStats struct {
	CashBalance     decimal.Decimal `json:"cashBalance"`
	TotalInvested   decimal.Decimal `json:"totalInvested"`
	TotalReceived   decimal.Decimal `json:"totalReceived"`
	TotalDividends  decimal.Decimal `json:"totalDividends"`
	RealizedPnL     decimal.Decimal `json:"realizedPnL"`
	OpenPositions   int             `json:"openPositions"`
	ClosedPositions int             `json:"closedPositions"`
	PositionsCount  int             `json:"positionsCount"`
}
