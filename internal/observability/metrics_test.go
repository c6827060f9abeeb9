package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.LookupsTotal.WithLabelValues("json", "versioned", "found").Inc()
	m.LookupsTotal.WithLabelValues("json", "versioned", "found").Inc()
	m.DecodeErrors.WithLabelValues("missing_field").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("json", "versioned", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors.WithLabelValues("missing_field")))

	count, err := testutil.GatherAndCount(reg, "test_lookup_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.StatusMismatches)
	RecordStatusMismatch()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.StatusMismatches))

	errsBefore := testutil.ToFloat64(DefaultMetrics.RPCErrors.WithLabelValues("getTransaction"))
	RecordRPCLatency("getTransaction", 0.01, nil)
	RecordRPCLatency("getTransaction", 0.02, errors.New("boom"))
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(DefaultMetrics.RPCErrors.WithLabelValues("getTransaction")))

	UpdateHighestSlot(4242)
	assert.Equal(t, 4242.0, testutil.ToFloat64(DefaultMetrics.HighestSlotSeen))
}

func TestHandler(t *testing.T) {
	RecordCacheHit()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "solana_tx_resolver_lookup_cache_hits_total"))
}
