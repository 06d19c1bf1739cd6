package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marginDiary/internal/ports"
)

type testLogger struct{}

func (testLogger) Debug(context.Context, string, ...map[string]interface{}) {}
func (testLogger) Info(context.Context, string, ...map[string]interface{})  {}
func (testLogger) Warn(context.Context, string, ...map[string]interface{})  {}
func (testLogger) Error(context.Context, error, string, ...map[string]interface{}) {
}

const rateLimitBody = `{"Note":"Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`

func quoteBody(price string) string {
	return fmt.Sprintf(`{"Global Quote":{"01. symbol":"X","05. price":"%s"}}`, price)
}

func newClient(t *testing.T, baseURL string, keys ...string) *Client {
	t.Helper()
	c, err := New(Config{APIKeys: keys, BaseURL: baseURL, Logger: testLogger{}})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{APIKeys: []string{" ", ""}, Logger: testLogger{}})
	assert.Error(t, err)
}

func TestParseKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseKeys(" a, b ,"))
	assert.Nil(t, ParseKeys(""))
}

func TestQuote_ForeignSymbolInUSD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, quoteBody("189.50"))
	}))
	defer srv.Close()

	q, err := newClient(t, srv.URL, "key1").Quote(context.Background(), "AAPL", false)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Ticker)
	assert.Equal(t, "189.5", q.Price.String())
	assert.Equal(t, "USD", q.Currency)
	assert.Equal(t, "alpha", q.Source)
}

func TestQuote_DomesticSymbolSuffixedAndInRUB(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SBER.ME", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, quoteBody("305.10"))
	}))
	defer srv.Close()

	q, err := newClient(t, srv.URL, "key1").Quote(context.Background(), "SBER", true)
	require.NoError(t, err)
	assert.Equal(t, "SBER", q.Ticker, "the suffix stays an upstream detail")
	assert.Equal(t, "RUB", q.Currency)
}

func TestQuote_RotatesKeysOnRateLimit(t *testing.T) {
	var usedKeys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("apikey")
		usedKeys = append(usedKeys, key)
		if key == "exhausted" {
			fmt.Fprint(w, rateLimitBody)
			return
		}
		fmt.Fprint(w, quoteBody("42.00"))
	}))
	defer srv.Close()

	q, err := newClient(t, srv.URL, "exhausted", "fresh").Quote(context.Background(), "AAPL", false)
	require.NoError(t, err)
	assert.Equal(t, "42", q.Price.String())
	assert.Equal(t, []string{"exhausted", "fresh"}, usedKeys)
}

func TestQuote_AllKeysExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rateLimitBody)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, "k1", "k2").Quote(context.Background(), "AAPL", false)
	assert.ErrorIs(t, err, ports.ErrUpstreamUnavailable)
}

func TestQuote_EmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Global Quote":{}}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, "k1").Quote(context.Background(), "MISSING", false)
	assert.ErrorIs(t, err, ports.ErrUpstreamUnavailable)
}
