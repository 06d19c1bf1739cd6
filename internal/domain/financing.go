package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancingEvent is a dated change to a trade's borrowing terms. Rate is set
// for RATE_CHANGE events; AmountChange for REPAYMENT and COLLATERAL_TOPUP.
// Events are never deleted automatically; the interest integral reads the
// full ordered sequence.
type FinancingEvent struct {
	ID           int64
	TradeID      int64
	EventDate    time.Time
	EventType    FinancingEventType
	Rate         *decimal.Decimal
	AmountChange *decimal.Decimal
	Notes        string
}
