package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/marketdata"
	"github.com/meenmo/curvekit/metrics"
	"github.com/meenmo/curvekit/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	snap, err := marketdata.Load("../marketdata/testdata/market.yaml")
	require.NoError(t, err)
	reg, err := service.NewRegistry(snap, service.WithLogger(logger.Nop()))
	require.NoError(t, err)
	return NewServer(Config{Addr: ":0"}, service.NewCurrent(reg), metrics.NewRecorder())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reference_date":"2025-01-02"`)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/nowhere", "").Code)
}

func TestCurveLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/curves/USD-SOFR/nodes", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/curves/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var builds []BuildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &builds))
	require.Len(t, builds, 3)
	for _, b := range builds {
		assert.Empty(t, b.Error)
		assert.Less(t, b.MaxError, 1e-9)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/curves", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var curves []CurveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &curves))
	require.Len(t, curves, 3)
	assert.Equal(t, "USD-SOFR", curves[0].Name)
	assert.True(t, curves[0].Calibrated)
	assert.Equal(t, "USD-SOFR", curves[1].DiscountCurve)
	assert.Equal(t, []string{"USD-SOFR", "USD-TERM3M"}, curves[2].Dependencies)

	rec = do(t, s, http.MethodGet, "/api/v1/curves/USD-SOFR/nodes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var nodes []NodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nodes))
	require.Len(t, nodes, 10)
	assert.Equal(t, "2025-01-02", nodes[0].Date)
	assert.Equal(t, 1.0, nodes[0].Value)

	rec = do(t, s, http.MethodGet, "/api/v1/curves/USD-SOFR/discount?date=2026-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var df struct{ Discount float64 }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &df))
	assert.InDelta(t, 0.96, df.Discount, 0.01)

	rec = do(t, s, http.MethodGet, "/api/v1/curves/USD-TERM3M/zero?date=2027-01-04&comp=simple&dc=ACT/360", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var zero RateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zero))
	assert.InDelta(t, 0.042, zero.Rate, 0.005)
	assert.Equal(t, "simple", zero.Compounding)

	rec = do(t, s, http.MethodGet, "/api/v1/curves/USD-TERM3M/forward?start=2026-01-05&end=2026-04-06", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/curves/USD-TERM3M/builds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodPut, "/api/v1/quotes/SOFR-OIS-2Y", `{"value":"4.10"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"SOFR-OIS-2Y","value":0.041}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/curves/USD-TERM3M/nodes", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueryErrors(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/v1/curves/refresh?force=true", "").Code)

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unknown curve", http.MethodGet, "/api/v1/curves/EUR-ESTR/nodes", "", http.StatusNotFound},
		{"bad date", http.MethodGet, "/api/v1/curves/USD-SOFR/discount?date=tomorrow", "", http.StatusBadRequest},
		{"past last pillar", http.MethodGet, "/api/v1/curves/USD-SOFR/discount?date=2040-01-02", "", http.StatusBadRequest},
		{"bad compounding", http.MethodGet, "/api/v1/curves/USD-SOFR/zero?date=2026-01-02&comp=weird", "", http.StatusBadRequest},
		{"bad spread", http.MethodGet, "/api/v1/curves/USD-SOFR/zero?date=2026-01-02&zero_spread_bp=wide", "", http.StatusBadRequest},
		{"as of before reference", http.MethodGet, "/api/v1/curves/USD-SOFR/discount?date=2026-01-02&as_of=2024-12-31", "", http.StatusBadRequest},
		{"unknown quote", http.MethodPut, "/api/v1/quotes/NOPE", `{"value":"1"}`, http.StatusNotFound},
		{"missing value", http.MethodPut, "/api/v1/quotes/SOFR-OIS-2Y", `{"unit":"bp"}`, http.StatusBadRequest},
		{"bad quote", http.MethodPut, "/api/v1/quotes/SOFR-OIS-2Y", `{"value":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, s, tt.method, tt.path, tt.body).Code)
		})
	}
}

func TestCurveViews(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/v1/curves/refresh", "").Code)

	discount := func(path string) float64 {
		t.Helper()
		rec := do(t, s, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out struct{ Discount float64 }
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out.Discount
	}
	d1 := discount("/api/v1/curves/USD-SOFR/discount?date=2026-01-02")
	d2 := discount("/api/v1/curves/USD-SOFR/discount?date=2030-01-02")
	moved := discount("/api/v1/curves/USD-SOFR/discount?date=2030-01-02&as_of=2026-01-02")
	assert.InDelta(t, d2/d1, moved, 1e-12)

	zero := func(path string) float64 {
		t.Helper()
		rec := do(t, s, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out RateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out.Rate
	}
	base := zero("/api/v1/curves/USD-SOFR/zero?date=2028-01-03")
	assert.InDelta(t, base+0.01, zero("/api/v1/curves/USD-SOFR/zero?date=2028-01-03&zero_spread_bp=100"), 1e-12)
	assert.InDelta(t, base-0.0025, zero("/api/v1/curves/USD-SOFR/zero?date=2028-01-03&forward_spread_bp=-25"), 1e-12)

	// views read the live curve and go stale with it
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, "/api/v1/quotes/SOFR-OIS-2Y", `{"value":"4.10"}`).Code)
	rec := do(t, s, http.MethodGet, "/api/v1/curves/USD-SOFR/discount?date=2030-01-02&as_of=2026-01-02", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatusOfBootstrapFailure(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPut, "/api/v1/quotes/SOFR-DEP-1W", `{"value":"-10000"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/curves/refresh", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
