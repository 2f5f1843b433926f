package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.ObserveChunk(OutcomeTranslated, 120*time.Millisecond)
	m.ObserveChunk(OutcomeSilent, time.Millisecond)
	m.ObserveChunk(OutcomeTranslated, time.Second)
	m.UpstreamError("stt")
	m.PersistenceFailure()
	m.AuthRejected()
	m.ConversationsSwept(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.connectionsTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.activeConnections))
	require.Equal(t, 2.0, testutil.ToFloat64(m.chunks.WithLabelValues(OutcomeTranslated)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.chunks.WithLabelValues(OutcomeSilent)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.upstreamErrors.WithLabelValues("stt")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.persistenceFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(m.authRejections))
	require.Equal(t, 3.0, testutil.ToFloat64(m.conversationsSwept))
	require.Equal(t, 1, testutil.CollectAndCount(m.chunkDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.ObserveChunk(OutcomeFailed, time.Second)
		m.UpstreamError("translation")
		m.PersistenceFailure()
		m.AuthRejected()
		m.ConversationsSwept(1)
	})
}
