package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLoad("committed", time.Second)
		m.IncMessage("contact_created")
		m.IncStateChange("connected")
		m.IncReconnect()
		m.ObserveBulk("verify", 1, 1)
		m.IncBulkError("verify")
		m.SetCollectionSize(3)
		m.IncRelayed("ok")
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.IncMessage("contact_created")
	m.IncMessage("contact_created")
	m.IncMessage("unknown")
	m.ObserveBulk("delete", 3, 1)
	m.IncReconnect()
	m.SetCollectionSize(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("contact_created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("unknown")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.bulkContacts.WithLabelValues("delete", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bulkContacts.WithLabelValues("delete", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconnects))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.collectionSize))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.IncReconnect()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "mwa_realtime_reconnect_attempts_total 1"))
}
