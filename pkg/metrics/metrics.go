package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ consume latency in milliseconds.
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paytrack_mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paytrack_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paytrack_db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"operation", "table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paytrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	ProjectTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paytrack_project_transitions_total",
			Help: "Project status transitions by outcome",
		},
		[]string{"from", "to", "result"}, // result: ok, rejected, write_failed, schedule_failed
	)

	PaymentsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paytrack_payments_scheduled_total",
			Help: "Payments written by the schedule generator",
		},
		[]string{"strategy", "result"}, // result: written, failed, compensated
	)

	PaymentsOverdue = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paytrack_payments_overdue_total",
			Help: "Payments moved to overdue by the sweep",
		},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paytrack_outbox_published_total",
			Help: "Outbox events handed to the broker",
		},
		[]string{"status"}, // status: sent, failed
	)
)

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func IncrementSlowQuery(operation, table string) {
	SlowQueryCount.WithLabelValues(operation, table).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementTransition(from, to, result string) {
	ProjectTransitions.WithLabelValues(from, to, result).Inc()
}

// AddScheduledPayments adds n to the scheduled payment counter.
func AddScheduledPayments(strategy, result string, n int) {
	if n <= 0 {
		return
	}
	PaymentsScheduled.WithLabelValues(strategy, result).Add(float64(n))
}

func AddOverduePayments(n int) {
	if n <= 0 {
		return
	}
	PaymentsOverdue.Add(float64(n))
}

func IncrementOutboxPublished(status string) {
	OutboxPublished.WithLabelValues(status).Inc()
}
