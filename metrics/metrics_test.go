package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "evmstore_metrics_test_gauge",
	Help: "Gauge refreshed by a pre-collect function",
})

func TestMetricsHandlerRunsPreCollectFns(t *testing.T) {
	calls := 0
	AddPreCollectFn(func() {
		calls++
		testGauge.Set(42)
	})

	handler := GetMetricsHandler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
	assert.Contains(t, rec.Body.String(), "evmstore_metrics_test_gauge 42")

	// scrapes within a second reuse the collected values
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, 1, calls)
}
