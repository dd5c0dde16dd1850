package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBooking("created")
	m.ObserveBooking("created")
	m.ObserveBooking("taken")
	m.ObserveAuthEvent("login", false)
	m.ObserveAvailabilityLookup(true)
	m.WSConnected()
	m.WSConnected()
	m.WSDisconnected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("taken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEventsTotal.WithLabelValues("login", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.availabilityHits.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsConnections))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBooking("created")
		m.ObserveTransition("approved")
		m.ObserveSlotToggle("Monday")
		m.ObserveHTTPRequest("GET", "/health", 200, 0.01)
		m.WSConnected()
	})
}
