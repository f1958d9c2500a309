package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("Transfer", "OK", 2*time.Millisecond)
	m.ObserveRequest("Transfer", "OK", 3*time.Millisecond)
	m.ObserveRequest("Transfer", "FailedPrecondition", time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("Transfer", "OK")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("Transfer", "FailedPrecondition")))
	require.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestObserveSinkPublish(t *testing.T) {
	m := New()
	m.ObserveSinkPublish("journal", nil)
	m.ObserveSinkPublish("journal", errors.New("disk full"))
	m.ObserveSinkPublish("journal", nil)

	require.Equal(t, 2.0, testutil.ToFloat64(m.sink.WithLabelValues("journal", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sink.WithLabelValues("journal", "error")))
}

func TestObserveSinkDrop(t *testing.T) {
	m := New()
	require.Zero(t, testutil.ToFloat64(m.dropped))
	m.ObserveSinkDrop()
	m.ObserveSinkDrop()
	require.Equal(t, 2.0, testutil.ToFloat64(m.dropped))
}

func TestGaugesAndHandler(t *testing.T) {
	m := New()
	accounts := 3
	m.RegisterAccountGauge(func() int { return accounts })
	m.RegisterAuditGauge(func() int { return 7 })

	expected := `
# HELP wallet_accounts Number of accounts currently held by the ledger.
# TYPE wallet_accounts gauge
wallet_accounts 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "wallet_accounts"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "wallet_audit_records 7")
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
