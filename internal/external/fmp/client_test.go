package fmp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelops/wheelhouse/pkg/httputil"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewNop()
	c := NewClient("test-key", srv.URL, httputil.New(log).DisableRetry(), log)
	return c, srv
}

func TestClient_Profile(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile", r.URL.Path)
		assert.Equal(t, "BRK-B", r.URL.Query().Get("symbol"), "dots must be normalized to dashes")
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"symbol":"BRK-B","companyName":"Berkshire Hathaway","mktCap":900000000000,"beta":0.88,"sector":"Financial Services"}]`))
	}))

	p, ok, err := c.Profile(context.Background(), "BRK.B")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "Berkshire Hathaway", p.CompanyName)
	require.NotNil(t, p.EffectiveMarketCap())
	assert.Equal(t, int64(900000000000), *p.EffectiveMarketCap())
	require.NotNil(t, p.Beta)
	assert.Equal(t, 0.88, *p.Beta)
	assert.Nil(t, p.Price, "absent field must stay nil, not zero")
}

func TestClient_Profile_NotFound(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	p, ok, err := c.Profile(context.Background(), "NOPE")
	require.NoError(t, err, "404 is not an error")
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestClient_Profile_EntitlementTreatedAsMissing(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))

	_, ok, err := c.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_RSI(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/technical-indicators/rsi", r.URL.Path)
		assert.Equal(t, "14", r.URL.Query().Get("periodLength"))
		assert.Equal(t, "1day", r.URL.Query().Get("timeframe"), "daily must map to 1day")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"date":"2025-06-02","rsi":54.3},{"date":"2025-05-30","rsi":51.1}]`))
	}))

	rsi, ok, err := c.RSI(context.Background(), "AAPL", "daily", 14)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 54.3, rsi)
}

func TestClient_RSI_NoData(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))

	_, ok, err := c.RSI(context.Background(), "XXXX", "daily", 14)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_CompanyScreener(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-screener", r.URL.Path)
		assert.Equal(t, "NASDAQ", r.URL.Query().Get("exchange"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"symbol":"AAPL","price":210.5,"marketCap":3200000000000},{"symbol":"MSFT","price":450.0}]`))
	}))

	rows, err := c.CompanyScreener(context.Background(), "NASDAQ", 500)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "AAPL", rows[0].Symbol)
}

func TestTimeframe(t *testing.T) {
	assert.Equal(t, "1day", timeframe("daily"))
	assert.Equal(t, "1week", timeframe("weekly"))
	assert.Equal(t, "1day", timeframe("1day"))
	assert.Equal(t, "4hour", timeframe("4hour"))
}
