package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lungfish-labs/simex/internal/database"
	"github.com/lungfish-labs/simex/internal/modules/catalog"
	"github.com/lungfish-labs/simex/internal/modules/ledger"
	"github.com/lungfish-labs/simex/internal/modules/portfolio"
	"github.com/lungfish-labs/simex/internal/modules/trading"
	"github.com/lungfish-labs/simex/internal/oracle"
)

const testToken = "token-alice"

func newTestServer(t *testing.T) (*Server, *ledger.Account) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	log := zerolog.Nop()

	catalogRepo := catalog.NewRepository(db.Conn(), log)
	require.NoError(t, catalogRepo.Seed(catalog.DefaultAssets()))

	store := ledger.NewStore(db.Conn(), log)
	account, err := store.CreateAccount("alice", testToken, decimal.RequireFromString("10000"))
	require.NoError(t, err)

	prices := oracle.Static{
		"BTC": decimal.RequireFromString("45000"),
		"ETH": decimal.RequireFromString("2500"),
		"SOL": decimal.RequireFromString("100"),
	}

	tradeRepo := trading.NewTradeRepository(db.Conn(), log)
	executor := trading.NewExecutor(catalogRepo, store, prices, nil, decimal.RequireFromString("5"), log)
	valuator := portfolio.NewValuator(store, prices, log)
	snapshotRepo := portfolio.NewSnapshotRepository(db.Conn(), log)

	srv := New(Config{
		Port:      0,
		DevMode:   true,
		Log:       log,
		Auth:      NewAuth(store, log),
		Catalog:   catalog.NewHandlers(catalogRepo, log),
		Trading:   trading.NewHandlers(executor, tradeRepo, log),
		Portfolio: portfolio.NewHandlers(valuator, snapshotRepo, log),
		Prices:    prices,
	})

	return srv, account
}

func do(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestServer_PublicRoutes_NoAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/api/assets", "/api/prices", "/metrics"} {
		rec := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_ProtectedRoutes_Uniform401(t *testing.T) {
	srv, _ := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/trade/buy"},
		{http.MethodPost, "/api/trade/sell"},
		{http.MethodGet, "/api/trades/history"},
		{http.MethodPost, "/api/trades/some-id/settlement"},
		{http.MethodGet, "/api/portfolio"},
		{http.MethodGet, "/api/portfolio/history"},
		{http.MethodGet, "/api/portfolio/performance"},
	}

	for _, token := range []string{"", "wrong-token"} {
		for _, route := range routes {
			rec := do(t, srv, route.method, route.path, token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s token=%q", route.method, route.path, token)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "unauthorized", resp["error"])
		}
	}
}

func TestServer_MalformedAuthHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, header := range []string{"Basic abc", "Bearer", testToken} {
		req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
		req.Header.Set("Authorization", header)

		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestServer_BuyThenPortfolioThenHistory(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/trade/buy", testToken, map[string]interface{}{
		"asset_symbol": "BTC",
		"quantity":     "0.1",
		"price":        "45000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/portfolio", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pf portfolio.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pf))
	assert.True(t, pf.Cash.Equal(decimal.RequireFromString("5500")))
	assert.True(t, pf.TotalValue.Equal(decimal.RequireFromString("10000")))
	require.Len(t, pf.Holdings, 1)
	assert.Equal(t, "BTC", pf.Holdings[0].Asset.Symbol)

	rec = do(t, srv, http.MethodGet, "/api/trades/history", testToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []trading.TradeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "BUY", history[0].TradeType)
}

func TestServer_Prices(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/prices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var prices map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prices))
	assert.Equal(t, "45000", prices["BTC"])
}
