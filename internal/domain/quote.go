package domain

import "github.com/shopspring/decimal"

// Quote is a fetched price for a ticker. Derived data: quotes live only in
// the cache, never in the store.
type Quote struct {
	Ticker   string          `json:"ticker"`
	Price    decimal.Decimal `json:"price"`
	Source   string          `json:"source"`
	Currency string          `json:"currency"`
}
