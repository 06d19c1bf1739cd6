package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marginDiary/internal/domain"
)

// fakeProvider counts calls and returns a fixed price or error.
type fakeProvider struct {
	name  string
	price decimal.Decimal
	err   error
	calls int

	lastSymbol   string
	lastDomestic bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Quote(_ context.Context, symbol string, domestic bool) (*domain.Quote, error) {
	f.calls++
	f.lastSymbol = symbol
	f.lastDomestic = domestic
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Quote{Ticker: symbol, Price: f.price, Source: f.name, Currency: "RUB"}, nil
}

func newTestCache(domestic, fallback, crypto *fakeProvider, now *time.Time) *Cache {
	cfg := Config{Now: func() time.Time { return *now }}
	if domestic != nil {
		cfg.Domestic = domestic
	}
	if fallback != nil {
		cfg.Fallback = fallback
	}
	if crypto != nil {
		cfg.Crypto = crypto
	}
	return New(cfg)
}

func TestGetPrice_CacheHitWithinTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dom := &fakeProvider{name: "moex", price: decimal.NewFromInt(300)}
	cache := newTestCache(dom, nil, nil, &now)

	q1 := cache.GetPrice(context.Background(), "SBER", 10*time.Minute)
	require.NotNil(t, q1)
	assert.True(t, q1.Price.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 1, dom.calls)

	now = now.Add(5 * time.Minute)
	q2 := cache.GetPrice(context.Background(), "SBER", 10*time.Minute)
	require.NotNil(t, q2)
	assert.Equal(t, 1, dom.calls, "cached entry within TTL must not refetch")

	now = now.Add(6 * time.Minute)
	cache.GetPrice(context.Background(), "SBER", 10*time.Minute)
	assert.Equal(t, 2, dom.calls, "expired entry must refetch")
}

func TestGetPrice_AliasSharesCacheEntry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dom := &fakeProvider{name: "moex", price: decimal.NewFromInt(3100)}
	cache := newTestCache(dom, nil, nil, &now)

	q := cache.GetPrice(context.Background(), "TCSG", 10*time.Minute)
	require.NotNil(t, q)
	assert.Equal(t, "T", dom.lastSymbol, "alias resolves before hitting the provider")
	assert.Equal(t, "TCSG", q.Ticker, "returned quote keeps the requested spelling")

	cache.GetPrice(context.Background(), "T", 10*time.Minute)
	assert.Equal(t, 1, dom.calls, "alias and canonical ticker share one entry")
}

func TestGetPrice_DomesticFallsBackToSecondary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dom := &fakeProvider{name: "moex", err: errors.New("iss down")}
	fb := &fakeProvider{name: "alpha", price: decimal.NewFromInt(280)}
	cache := newTestCache(dom, fb, nil, &now)

	q := cache.GetPrice(context.Background(), "GAZP", time.Minute)
	require.NotNil(t, q)
	assert.Equal(t, "alpha", q.Source)
	assert.Equal(t, 1, dom.calls)
	assert.Equal(t, 1, fb.calls)
	assert.True(t, fb.lastDomestic, "fallback must know the ticker is domestic")
}

func TestGetPrice_ForeignSkipsDomesticProvider(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dom := &fakeProvider{name: "moex", price: decimal.NewFromInt(1)}
	fb := &fakeProvider{name: "alpha", price: decimal.NewFromInt(190)}
	cache := newTestCache(dom, fb, nil, &now)

	q := cache.GetPrice(context.Background(), "AAPL", time.Minute)
	require.NotNil(t, q)
	assert.Equal(t, 0, dom.calls)
	assert.Equal(t, "alpha", q.Source)
	assert.False(t, fb.lastDomestic)
}

func TestGetPrice_CryptoRoutesToCryptoProvider(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fb := &fakeProvider{name: "alpha", price: decimal.NewFromInt(1)}
	crypto := &fakeProvider{name: "binance", price: decimal.NewFromInt(65000)}
	cache := newTestCache(nil, fb, crypto, &now)

	q := cache.GetPrice(context.Background(), "BTCUSDT", time.Minute)
	require.NotNil(t, q)
	assert.Equal(t, "binance", q.Source)
	assert.Equal(t, 0, fb.calls, "crypto pairs never hit the equity providers")
}

func TestGetPrice_ExpiredEntryNotServedDuringOutage(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dom := &fakeProvider{name: "moex", price: decimal.NewFromInt(300)}
	cache := newTestCache(dom, nil, nil, &now)

	require.NotNil(t, cache.GetPrice(context.Background(), "SBER", time.Minute))

	dom.err = errors.New("iss down")
	now = now.Add(time.Hour)
	assert.Nil(t, cache.GetPrice(context.Background(), "SBER", time.Minute),
		"an hour-old price is no price at all")

	dom.err = nil
	dom.price = decimal.NewFromInt(310)
	q := cache.GetPrice(context.Background(), "SBER", time.Minute)
	require.NotNil(t, q, "the kept entry does not block the refetch")
	assert.True(t, q.Price.Equal(decimal.NewFromInt(310)), "recovery replaces the expired entry")
}

func TestGetPrice_FailureIsNotCached(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dom := &fakeProvider{name: "moex", err: errors.New("iss down")}
	cache := newTestCache(dom, nil, nil, &now)

	assert.Nil(t, cache.GetPrice(context.Background(), "SBER", time.Minute))
	assert.Nil(t, cache.GetPrice(context.Background(), "SBER", time.Minute))
	assert.Equal(t, 2, dom.calls, "each call retries while nothing is cached")
}

func TestGetPrice_CashTickerHasNoQuote(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fb := &fakeProvider{name: "alpha", price: decimal.NewFromInt(1)}
	cache := newTestCache(nil, fb, nil, &now)

	assert.Nil(t, cache.GetPrice(context.Background(), domain.CashTicker, time.Minute))
	assert.Equal(t, 0, fb.calls)
}

func TestGetPrices_PartialResults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dom := &fakeProvider{name: "moex", price: decimal.NewFromInt(300)}
	cache := newTestCache(dom, nil, nil, &now)

	got := cache.GetPrices(context.Background(), []string{"SBER", "AAPL"}, time.Minute)
	require.Len(t, got, 1, "unpriceable tickers are omitted, not errors")
	assert.Contains(t, got, "SBER")
}

func TestGetPrices_DuplicatesLookedUpOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dom := &fakeProvider{name: "moex", err: errors.New("iss down")}
	cache := newTestCache(dom, nil, nil, &now)

	got := cache.GetPrices(context.Background(), []string{"SBER", "SBER", "SBER"}, time.Minute)
	assert.Empty(t, got)
	assert.Equal(t, 1, dom.calls, "a failing symbol is tried once per batch")

	dom.err = nil
	dom.price = decimal.NewFromInt(3100)
	got = cache.GetPrices(context.Background(), []string{"TCSG", "T"}, time.Minute)
	require.Len(t, got, 1, "aliased spellings resolve to one symbol")
	assert.Equal(t, 2, dom.calls)
}

func TestIsCrypto(t *testing.T) {
	assert.True(t, IsCrypto("BTCUSDT"))
	assert.True(t, IsCrypto("ETHUSDC"))
	assert.False(t, IsCrypto("USDT"), "a bare suffix is not a pair")
	assert.False(t, IsCrypto("SBER"))
}
