package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("POST", "/api/v1/orders", 201, 30*time.Millisecond)
	m.Observe("POST", "/api/v1/orders", 201, 10*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "supplyhub_http_requests_total", "route", "/api/v1/orders")
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "supplyhub_http_requests_total", "route", "unknown")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)

	var nilMetrics *HTTPMetrics
	assert.NotPanics(t, func() { nilMetrics.Observe("GET", "/", 200, time.Second) })
}
