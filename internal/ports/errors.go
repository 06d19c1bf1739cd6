package ports

import "errors"

// Standard application-level errors. Adapters wrap infrastructure failures
// with these so the services can branch on them without knowing the backend.
var (
	// General
	ErrNotFound          = errors.New("resource not found")
	ErrPortfolioInactive = errors.New("portfolio is deactivated")

	// Quote providers
	ErrRateLimited         = errors.New("provider rate limit exceeded")
	ErrUpstreamUnavailable = errors.New("quote provider unavailable")
	ErrNoPrice             = errors.New("no price available for symbol")

	// Store
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
	ErrDeleteFailed = errors.New("database delete failed")
)
