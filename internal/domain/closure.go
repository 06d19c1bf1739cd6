package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeClosure records one partial (or final) closure of a trade. Created
// once and immutable afterwards.
type TradeClosure struct {
	ID             int64
	TradeID        int64
	ClosedQuantity int64
	ExitPrice      decimal.Decimal
	ExitDate       time.Time
	Notes          string
}

// ClosureResult is the outcome of a FIFO close across one symbol's open
// lots. Leftover > 0 means the request exceeded the open quantity; that is a
// partial success, not an error.
type ClosureResult struct {
	Requested      int64           `json:"requested"`
	Closed         int64           `json:"closed"`
	Leftover       int64           `json:"leftover"`
	AffectedTrades []int64         `json:"affectedTrades"`
	GrossProceeds  decimal.Decimal `json:"grossProceeds"`
	EntryCost      decimal.Decimal `json:"entryCost"`
	GrossPnL       decimal.Decimal `json:"grossPnL"`
	Message        string          `json:"message"`
}
