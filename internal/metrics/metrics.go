package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters and histograms for booking, schedule editing,
// authentication and HTTP traffic. A nil *Metrics is a valid no-op.
type Metrics struct {
	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	slotTogglesTotal *prometheus.CounterVec
	availabilityHits *prometheus.CounterVec
	authEventsTotal  *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	wsConnections    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docbook",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docbook",
			Subsystem: "appointments",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions by target status",
		}, []string{"status"}),
		slotTogglesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docbook",
			Subsystem: "schedule",
			Name:      "slot_toggles_total",
			Help:      "Slot toggles applied to editing weeks",
		}, []string{"day"}),
		availabilityHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docbook",
			Subsystem: "availability",
			Name:      "lookups_total",
			Help:      "Available-slot lookups by cache result",
		}, []string{"cache"}),
		authEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docbook",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Authentication events by type and result",
		}, []string{"event", "success"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docbook",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docbook",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open notification websocket connections",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.transitionsTotal,
		m.slotTogglesTotal,
		m.availabilityHits,
		m.authEventsTotal,
		m.httpDuration,
		m.wsConnections,
	)
	return m
}

// ObserveBooking records a booking attempt; outcome is "created", "taken",
// "unavailable" or "error".
func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSlotToggle(day string) {
	if m == nil {
		return
	}
	m.slotTogglesTotal.WithLabelValues(day).Inc()
}

func (m *Metrics) ObserveAvailabilityLookup(cacheHit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	m.availabilityHits.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveAuthEvent(event string, success bool) {
	if m == nil {
		return
	}
	m.authEventsTotal.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}

func (m *Metrics) WSConnected() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *Metrics) WSDisconnected() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}
