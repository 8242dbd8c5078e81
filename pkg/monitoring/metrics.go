package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	slotReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_reservations_total",
			Help: "Slot reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	slotCancellationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_cancellations_total",
			Help: "Appointment cancellations by requester role and outcome",
		},
		[]string{"role", "outcome"},
	)

	paymentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Payment order creations and verifications by outcome",
		},
		[]string{"stage", "outcome"},
	)

	slotLockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slot_lock_wait_seconds",
			Help:    "Time spent waiting for a doctor/date slot lock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		slotReservationsTotal,
		slotCancellationsTotal,
		paymentEventsTotal,
		slotLockWait,
	)
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveReservation records the outcome of a Reserve call.
func ObserveReservation(outcome string) {
	slotReservationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCancellation records the outcome of a Cancel call.
func ObserveCancellation(role, outcome string) {
	slotCancellationsTotal.WithLabelValues(role, outcome).Inc()
}

// ObservePayment records a payment stage ("order" or "verify") outcome.
func ObservePayment(stage, outcome string) {
	paymentEventsTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveLockWait records how long a caller waited for a slot lock.
func ObserveLockWait(d time.Duration) {
	slotLockWait.Observe(d.Seconds())
}
