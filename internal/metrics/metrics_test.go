package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/shorturl/internal/metrics"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.Registration(metrics.OutcomeCreated)
	m.Registration(metrics.OutcomeCreated)
	m.Registration(metrics.OutcomeExisting)
	m.Lookup(metrics.LookupMiss)
	m.ValidationFailure("malformed")
	m.ObserveDNS(10*time.Millisecond, true)
	m.SetStorageUp(true)

	expected := `
# HELP shorturl_registrations_total URL registrations by outcome.
# TYPE shorturl_registrations_total counter
shorturl_registrations_total{outcome="created"} 2
shorturl_registrations_total{outcome="existing"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "shorturl_registrations_total")
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "shorturl_lookups_total", "shorturl_validation_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration
	a := metrics.New()
	b := metrics.New()

	a.Registration(metrics.OutcomeCreated)

	n, err := testutil.GatherAndCount(b.Registry(), "shorturl_registrations_total")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.SetStorageUp(false)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shorturl_storage_up 0")
}
