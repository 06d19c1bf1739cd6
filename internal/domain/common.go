package domain

import "time"

// FinancingRateType says whether a trade's financing rate is fixed for the
// life of the position or tracks a floating benchmark.
type FinancingRateType string

const (
	RateFixed    FinancingRateType = "FIXED"
	RateFloating FinancingRateType = "FLOATING"
)

// FinancingEventType classifies a dated mutation of a trade's financing terms.
type FinancingEventType string

const (
	EventRateChange      FinancingEventType = "RATE_CHANGE"
	EventRepayment       FinancingEventType = "REPAYMENT"
	EventCollateralTopup FinancingEventType = "COLLATERAL_TOPUP"
)

// SpotTransactionType classifies a spot (non-margin) transaction.
type SpotTransactionType string

const (
	SpotBuy      SpotTransactionType = "BUY"
	SpotSell     SpotTransactionType = "SELL"
	SpotDividend SpotTransactionType = "DIVIDEND"
	SpotDeposit  SpotTransactionType = "DEPOSIT"
	SpotWithdraw SpotTransactionType = "WITHDRAW"
)

// DateOnly truncates t to midnight UTC. All diary dates are calendar dates;
// normalizing both operands keeps day arithmetic exact regardless of the
// zone a value was parsed in.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b. Negative when b
// is before a.
func DaysBetween(a, b time.Time) int64 {
	return int64(DateOnly(b).Sub(DateOnly(a)) / (24 * time.Hour))
}
