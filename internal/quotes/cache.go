// Package quotes maintains an in-memory price cache fed by a chain of
// upstream providers. Domestic tickers are served from the domestic
// exchange first with a fallback provider behind it, crypto pairs go
// straight to the crypto provider, and everything else goes to the
// fallback. Failed lookups never evict a previously cached price.
package quotes

import (
	"context"
	"strings"
	"sync"
	"time"

	"marginDiary/internal/domain"
	"marginDiary/internal/ports"
)

// domesticTickers is the set of symbols routed to the domestic exchange
// provider before any fallback.
var domesticTickers = map[string]struct{}{
	"SBER": {}, "GAZP": {}, "LKOH": {}, "GMKN": {}, "ROSN": {},
	"NVTK": {}, "TATN": {}, "MGNT": {}, "MTSS": {}, "ALRS": {},
	"CHMF": {}, "NLMK": {}, "PLZL": {}, "YDEX": {}, "VTBR": {},
	"MOEX": {}, "AFLT": {}, "PHOR": {}, "SNGS": {}, "T": {},
	"OZON": {}, "POSI": {}, "GLTR": {}, "FIVE": {},
}

// aliases maps legacy or renamed tickers to the symbol the exchanges
// actually list. Cache entries are keyed by the resolved symbol so both
// spellings share one entry.
var aliases = map[string]string{
	"TCSG": "T",
}

// cryptoSuffixes mark a ticker as a crypto pair.
var cryptoSuffixes = []string{"USDT", "USDC", "BUSD", "BTC", "ETH"}

type entry struct {
	quote     domain.Quote
	fetchedAt time.Time
}

// Cache resolves and caches quotes from the configured provider chain.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	domestic ports.QuoteProvider
	fallback ports.QuoteProvider
	crypto   ports.QuoteProvider

	now    func() time.Time
	logger ports.Logger
}

// Config holds the provider chain for the cache. Any provider may be nil,
// in which case its tier is skipped.
type Config struct {
	Domestic ports.QuoteProvider
	Fallback ports.QuoteProvider
	Crypto   ports.QuoteProvider
	Logger   ports.Logger
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// New creates a quote cache over the given provider chain.
func New(cfg Config) *Cache {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:  make(map[string]entry),
		domestic: cfg.Domestic,
		fallback: cfg.Fallback,
		crypto:   cfg.Crypto,
		now:      now,
		logger:   cfg.Logger,
	}
}

// Resolve maps an aliased ticker to its listed symbol.
func Resolve(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if canonical, ok := aliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// IsDomestic reports whether the ticker trades on the domestic exchange.
func IsDomestic(ticker string) bool {
	_, ok := domesticTickers[Resolve(ticker)]
	return ok
}

// IsCrypto reports whether the ticker looks like a crypto pair.
func IsCrypto(ticker string) bool {
	t := Resolve(ticker)
	for _, s := range cryptoSuffixes {
		if strings.HasSuffix(t, s) && len(t) > len(s) {
			return true
		}
	}
	return false
}

// GetPrice returns a quote for the ticker, serving from cache while the
// entry is younger than ttl. A nil result means the price is unavailable
// everywhere; an expired entry is never served, though it stays in the
// map until a successful fetch replaces it. Failures are never cached.
func (c *Cache) GetPrice(ctx context.Context, ticker string, ttl time.Duration) *domain.Quote {
	requested := strings.ToUpper(strings.TrimSpace(ticker))
	if requested == "" || requested == domain.CashTicker {
		return nil
	}
	symbol := Resolve(requested)

	c.mu.RLock()
	cached, ok := c.entries[symbol]
	c.mu.RUnlock()
	if ok && c.now().Sub(cached.fetchedAt) < ttl {
		q := cached.quote
		q.Ticker = requested
		return &q
	}

	quote := c.fetch(ctx, symbol)
	if quote == nil {
		return nil
	}

	c.mu.Lock()
	c.entries[symbol] = entry{quote: *quote, fetchedAt: c.now()}
	c.mu.Unlock()

	q := *quote
	q.Ticker = requested
	return &q
}

// GetPrices resolves a batch of tickers, returning whatever subset could
// be priced. Tickers with no price anywhere are simply absent from the
// result. Duplicates (including aliased spellings of one symbol) are
// looked up once.
func (c *Cache) GetPrices(ctx context.Context, tickers []string, ttl time.Duration) map[string]*domain.Quote {
	out := make(map[string]*domain.Quote, len(tickers))
	seen := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		symbol := Resolve(t)
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		if q := c.GetPrice(ctx, t, ttl); q != nil {
			out[t] = q
		}
	}
	return out
}

func (c *Cache) fetch(ctx context.Context, symbol string) *domain.Quote {
	if IsCrypto(symbol) {
		return c.tryProvider(ctx, c.crypto, symbol, false)
	}

	domesticSym := IsDomestic(symbol)
	if domesticSym {
		if q := c.tryProvider(ctx, c.domestic, symbol, true); q != nil {
			return q
		}
	}
	return c.tryProvider(ctx, c.fallback, symbol, domesticSym)
}

func (c *Cache) tryProvider(ctx context.Context, p ports.QuoteProvider, symbol string, domestic bool) *domain.Quote {
	if p == nil {
		return nil
	}
	quote, err := p.Quote(ctx, symbol, domestic)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn(ctx, "quote provider failed",
				map[string]interface{}{"provider": p.Name(), "symbol": symbol, "error": err.Error()})
		}
		return nil
	}
	quote.Ticker = symbol
	return quote
}
