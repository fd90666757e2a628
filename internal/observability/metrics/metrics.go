package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flows.
type BookingMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	conflictsTotal *prometheus.CounterVec
	writesTotal    *prometheus.CounterVec
	lockDegraded   prometheus.Counter
	httpLatency    *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "ledger",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "ledger",
			Name:      "slot_conflicts_total",
			Help:      "Slot conflicts by the layer that detected them",
		}, []string{"source"}),
		writesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "ledger",
			Name:      "writes_total",
			Help:      "Successful ledger writes by operation",
		}, []string{"operation"}),
		lockDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "ledger",
			Name:      "lock_degraded_total",
			Help:      "Slot writes that ran without the Redis lock because Redis was unreachable",
		}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.writesTotal, m.lockDegraded, m.httpLatency)
	return m
}

// ObserveBooking counts a booking attempt. outcome is one of
// "booked", "conflict", "invalid" or "error".
func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveConflict records where a slot conflict was caught:
// "precheck", "lock" or "constraint".
func (m *BookingMetrics) ObserveConflict(source string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(source).Inc()
}

func (m *BookingMetrics) ObserveWrite(operation string) {
	if m == nil {
		return
	}
	m.writesTotal.WithLabelValues(operation).Inc()
}

// ObserveLockDegraded counts a slot write that fell back to the unique index
// alone.
func (m *BookingMetrics) ObserveLockDegraded() {
	if m == nil {
		return
	}
	m.lockDegraded.Inc()
}

func (m *BookingMetrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, status).Observe(seconds)
}
