package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trustmeet"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		},
		[]string{"route", "status"},
	)

	ledgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger mutations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	ledgerAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_amount_minor_total",
			Help:      "Sum of successfully applied ledger amounts in minor units.",
		},
		[]string{"kind"},
	)

	unlockPurchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlock_purchases_total",
			Help:      "Unlock purchase attempts by resource kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by target status and outcome.",
		},
		[]string{"to", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, ledgerOperations, ledgerAmount, unlockPurchases, bookingTransitions)
	})
}

// IncHTTP counts a served request.
func IncHTTP(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}

// ObserveLedger counts a ledger mutation; amount is added only on success.
func ObserveLedger(kind string, amount int64, err error) {
	outcome := Outcome(err)
	ledgerOperations.WithLabelValues(kind, outcome).Inc()
	if err == nil && amount > 0 {
		ledgerAmount.WithLabelValues(kind).Add(float64(amount))
	}
}

// ObserveUnlock counts an unlock purchase attempt.
func ObserveUnlock(kind string, err error) {
	unlockPurchases.WithLabelValues(kind, Outcome(err)).Inc()
}

// ObserveTransition counts a booking transition attempt.
func ObserveTransition(to string, err error) {
	bookingTransitions.WithLabelValues(to, Outcome(err)).Inc()
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
