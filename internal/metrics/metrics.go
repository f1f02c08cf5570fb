package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts completed poll cycles, successful or not.
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "posagent",
		Name:      "poll_cycles_total",
		Help:      "Poll cycles run against the order backend.",
	})

	// PollErrors counts failed backend queries by query kind.
	PollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posagent",
		Name:      "poll_errors_total",
		Help:      "Backend query failures during poll cycles.",
	}, []string{"query"})

	// OrdersEmitted counts orders put on the new-order stream.
	OrdersEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "posagent",
		Name:      "orders_emitted_total",
		Help:      "Orders emitted to the notification panel.",
	})

	// AlertsStarted counts audible alerts triggered.
	AlertsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "posagent",
		Name:      "alerts_started_total",
		Help:      "Audible new-order alerts started.",
	})

	// Prints counts print attempts by outcome.
	Prints = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posagent",
		Name:      "prints_total",
		Help:      "Print attempts by outcome.",
	}, []string{"result"})
)
