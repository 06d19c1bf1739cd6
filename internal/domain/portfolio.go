package domain

// Portfolio groups a user's trades and spot transactions. Portfolios are
// soft-deactivated, never hard-deleted while trades reference them.
type Portfolio struct {
	ID       int64
	UserID   int64
	Name     string
	Type     string
	Currency string
	IsActive bool
}
