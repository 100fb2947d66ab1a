package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/domain"
	"tradejournal/internal/journal"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	logger := &mockLogger{}
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.SaveSettings(context.Background(),
		&domain.AccountSettings{Balance: 10000, UnitRiskValue: 100}))

	svc, err := journal.NewService(logger, repo, repo)
	require.NoError(t, err)

	return NewServer(0, svc, nil, repo, logger)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func openTradeBody() map[string]interface{} {
	return map[string]interface{}{
		"symbol":       "BTC/USDT",
		"side":         "long",
		"openPrice":    50000,
		"stopLoss":     49000,
		"takeProfit":   52000,
		"leverage":     2,
		"riskMultiple": 1,
	}
}

type recordingLogger struct {
	mockLogger
	errs []error
}

func (r *recordingLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	r.errs = append(r.errs, err)
}

func TestWriteJSON_EncodeFailureIsLogged(t *testing.T) {
	rl := &recordingLogger{}
	s := &Server{logger: rl}

	rec := httptest.NewRecorder()
	s.writeJSON(rec, http.StatusOK, Response{Status: "success", Data: math.NaN()})

	// the status line is already out, but the failure must not be silent
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rl.errs, 1)
	assert.Contains(t, rl.errs[0].Error(), "unsupported value")
}

func TestHealth(t *testing.T) {
	s := setupTestServer(t)
	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", resp.Status)
}

func TestOpenTradeEndpoint(t *testing.T) {
	s := setupTestServer(t)

	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/api/trades", openTradeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "open", data["status"])
	assert.InDelta(t, 5000.0, data["positionSize"].(float64), 1e-6)
	assert.InDelta(t, 100.0, data["riskAmount"].(float64), 1e-6)
}

func TestOpenTradeEndpoint_WrongSideStop(t *testing.T) {
	s := setupTestServer(t)

	body := openTradeBody()
	body["stopLoss"] = 51000
	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", resp.Status)
}

func TestOpenTradeEndpoint_MalformedBody(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/trades", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseTradeEndpoint(t *testing.T) {
	s := setupTestServer(t)

	_, created := doJSON(t, s.Handler(), http.MethodPost, "/api/trades", openTradeBody())
	id := created.Data.(map[string]interface{})["id"].(string)

	closeBody := map[string]interface{}{"closePrice": 51000, "reason": "TP"}
	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/api/trades/"+id+"/close", closeBody)
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "closed", data["status"])
	closeData, ok := data["close"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 100.0, closeData["pnlDollar"].(float64), 1e-6)
	assert.InDelta(t, 1.0, closeData["rResult"].(float64), 1e-6)

	// double close conflicts
	rec, _ = doJSON(t, s.Handler(), http.MethodPost, "/api/trades/"+id+"/close", closeBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCloseTradeEndpoint_NotFound(t *testing.T) {
	s := setupTestServer(t)

	rec, _ := doJSON(t, s.Handler(), http.MethodPost, "/api/trades/missing/close",
		map[string]interface{}{"closePrice": 51000})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTradeEndpoint(t *testing.T) {
	s := setupTestServer(t)

	_, created := doJSON(t, s.Handler(), http.MethodPost, "/api/trades", openTradeBody())
	id := created.Data.(map[string]interface{})["id"].(string)

	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/api/trades/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, resp.Data.(map[string]interface{})["id"])

	rec, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/trades/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTradesEndpoint(t *testing.T) {
	s := setupTestServer(t)

	for i := 0; i < 3; i++ {
		doJSON(t, s.Handler(), http.MethodPost, "/api/trades", openTradeBody())
	}

	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/api/trades", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]interface{}), 3)

	rec, resp = doJSON(t, s.Handler(), http.MethodGet, "/api/trades?status=open", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]interface{}), 3)

	rec, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/trades?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTradeEndpoint(t *testing.T) {
	s := setupTestServer(t)

	_, created := doJSON(t, s.Handler(), http.MethodPost, "/api/trades", openTradeBody())
	id := created.Data.(map[string]interface{})["id"].(string)

	rec, _ := doJSON(t, s.Handler(), http.MethodDelete, "/api/trades/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, s.Handler(), http.MethodDelete, "/api/trades/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanEndpoint(t *testing.T) {
	s := setupTestServer(t)

	rec, resp := doJSON(t, s.Handler(), http.MethodPost, "/api/plan", openTradeBody())
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.InDelta(t, 100.0, data["riskAmount"].(float64), 1e-6)
	assert.InDelta(t, 5000.0, data["positionSize"].(float64), 1e-6)

	// nothing persisted by a preview
	_, listed := doJSON(t, s.Handler(), http.MethodGet, "/api/trades", nil)
	assert.Empty(t, listed.Data)
}

func TestStatsEndpoint(t *testing.T) {
	s := setupTestServer(t)

	_, created := doJSON(t, s.Handler(), http.MethodPost, "/api/trades", openTradeBody())
	id := created.Data.(map[string]interface{})["id"].(string)
	doJSON(t, s.Handler(), http.MethodPost, "/api/trades/"+id+"/close",
		map[string]interface{}{"closePrice": 51000, "reason": "TP"})

	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, 1.0, data["totalTrades"])
	assert.Equal(t, 1.0, data["winningTrades"])
	assert.InDelta(t, 100.0, data["totalProfit"].(float64), 1e-6)
	// balance already includes the realized P&L
	assert.InDelta(t, 10100.0, data["finalBalance"].(float64), 1e-6)
}

func TestStatsEndpoint_Empty(t *testing.T) {
	s := setupTestServer(t)

	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, 0.0, data["totalTrades"])
	assert.Nil(t, data["sharpeRatio"])
}

func TestSettingsEndpoints(t *testing.T) {
	s := setupTestServer(t)

	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.InDelta(t, 10000.0, data["balance"].(float64), 1e-6)
	assert.InDelta(t, 100.0, data["unitRiskValue"].(float64), 1e-6)

	rec, _ = doJSON(t, s.Handler(), http.MethodPut, "/api/settings",
		map[string]interface{}{"balance": 20000, "unitRiskValue": 200})
	require.Equal(t, http.StatusOK, rec.Code)

	_, resp = doJSON(t, s.Handler(), http.MethodGet, "/api/settings", nil)
	data = resp.Data.(map[string]interface{})
	assert.InDelta(t, 20000.0, data["balance"].(float64), 1e-6)

	rec, _ = doJSON(t, s.Handler(), http.MethodPut, "/api/settings",
		map[string]interface{}{"balance": 20000, "unitRiskValue": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceEndpoint_NoMarketData(t *testing.T) {
	s := setupTestServer(t)

	rec, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/price?symbol=BTC/USDT", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBalanceHistoryEndpoint(t *testing.T) {
	s := setupTestServer(t)

	rec, resp := doJSON(t, s.Handler(), http.MethodGet, "/api/balance/history", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Data)

	rec, _ = doJSON(t, s.Handler(), http.MethodGet, "/api/balance/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, s.Handler(), http.MethodGet, fmt.Sprintf("/api/balance/history?limit=%d", -1), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
