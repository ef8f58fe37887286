package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "restaurant"

var (
	transitionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "transitions_total",
			Help:      "Count of automated order status transitions, by target status.",
		},
		[]string{"status"},
	)
	stalledCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "stalled_total",
			Help:      "Count of automation chains halted by a storage failure.",
		},
	)
	conflictsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "conflicts_total",
			Help:      "Count of timer firings that found the order in an unexpected state.",
		},
	)
	notificationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Count of customer notifications, by channel, event kind and result.",
		},
		[]string{"channel", "kind", "result"},
	)
	activeTicketsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "kitchen",
			Name:      "active_tickets",
			Help:      "Kitchen tickets currently pending or in progress.",
		},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)
	loadGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "kitchen",
			Name:      "load",
			Help:      "Kitchen load ratio in [0,1].",
		},
	)
)

var registerMetrics sync.Once

// Register all metrics with the given registerer (prometheus.DefaultRegisterer when nil).
func Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	registerMetrics.Do(func() {
		reg.MustRegister(transitionsCounter, stalledCounter, conflictsCounter,
			notificationsCounter, activeTicketsGauge, loadGauge, httpDuration)
	})
}

func RecordTransition(status string) { transitionsCounter.WithLabelValues(status).Inc() }

func RecordStalled() { stalledCounter.Inc() }

func RecordConflict() { conflictsCounter.Inc() }

func RecordNotification(channel, kind, result string) {
	notificationsCounter.WithLabelValues(channel, kind, result).Inc()
}

// RecordKitchenLoad publishes the active ticket count and the derived load.
func RecordKitchenLoad(active int64, load float64) {
	activeTicketsGauge.Set(float64(active))
	loadGauge.Set(load)
}

func ObserveHTTP(method, route string, code int, seconds float64) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(seconds)
}
