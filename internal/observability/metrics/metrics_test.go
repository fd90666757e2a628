package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveBooking("booked")
	m.ObserveBooking("booked")
	m.ObserveBooking("conflict")
	m.ObserveConflict("constraint")
	m.ObserveWrite("cancel")
	m.ObserveLockDegraded()
	m.ObserveHTTP("POST", "/api/appointments", "201", 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflictsTotal.WithLabelValues("constraint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writesTotal.WithLabelValues("cancel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lockDegraded))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpLatency))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("booked")
	m.ObserveConflict("lock")
	m.ObserveWrite("update")
	m.ObserveLockDegraded()
	m.ObserveHTTP("GET", "/api/health", "200", 0.1)
}
