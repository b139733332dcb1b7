package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/curvekit/curve"
	"github.com/meenmo/curvekit/errs"
)

func TestRecordBuild(t *testing.T) {
	t.Parallel()
	r := NewRecorder()

	stats := curve.BuildStats{Passes: 3, Evaluations: 42, Retries: 1, Fallbacks: 2, Duration: 5 * time.Millisecond, MaxQuoteError: 1e-13}
	r.RecordBuild("USD-SOFR", 8, stats, nil)
	r.RecordBuild("USD-SOFR", 0, curve.BuildStats{}, &errs.BootstrapError{Index: 2, Err: errs.ErrConvergence})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.buildCounter.WithLabelValues("USD-SOFR", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.buildCounter.WithLabelValues("USD-SOFR", "bootstrap")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.passesGauge.WithLabelValues("USD-SOFR")))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.evaluationsGauge.WithLabelValues("USD-SOFR")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.nodesGauge.WithLabelValues("USD-SOFR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbackCounter.WithLabelValues("USD-SOFR", "retry")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fallbackCounter.WithLabelValues("USD-SOFR", "unbracketed")))
}

func TestRecordUnclassifiedFailure(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.RecordBuild("EUR-ESTR", 0, curve.BuildStats{}, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.buildCounter.WithLabelValues("EUR-ESTR", "unknown")))
}

func TestServerExposesRegistry(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.RecordQuoteUpdate("USD-DEP-3M")
	r.RecordAPIRequest("GET", "/curves", 200, time.Millisecond)

	srv := NewServer(r, 0, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `curvekit_quote_updates_total{instrument="USD-DEP-3M"} 1`)
	assert.Contains(t, body, `curvekit_api_requests_total{method="GET",path="/curves",status="200"} 1`)
}
