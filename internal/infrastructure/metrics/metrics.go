package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cartsplit"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Session metrics
	SessionsCreated   prometheus.Counter
	SessionsClosed    prometheus.Counter
	ReceiptsProcessed prometheus.Counter
	ProductsAdded     prometheus.Counter

	// Debt metrics
	DebtsCreated prometheus.Counter
	DebtsSettled prometheus.Counter
	DebtAmount   prometheus.Histogram

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Notification metrics
	PushNotifications   *prometheus.CounterVec
	OutboxPublished     *prometheus.CounterVec
	RealtimeConnections prometheus.Gauge
	RealtimeSignals     prometheus.Counter

	// Database metrics
	DBRetries *prometheus.CounterVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg.
// A nil reg registers with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of shopping sessions opened",
		}),
		SessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of shopping sessions closed",
		}),
		ReceiptsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_processed_total",
			Help:      "Total number of receipts settled",
		}),
		ProductsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_added_total",
			Help:      "Total number of product instances added to sessions",
		}),

		DebtsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debts_created_total",
			Help:      "Total number of debts created by settlement",
		}),
		DebtsSettled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debts_settled_total",
			Help:      "Total number of debts marked as payed",
		}),
		DebtAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "debt_amount",
			Help:      "Debt amounts",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 1000},
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Product cache lookups by result",
			},
			[]string{"result"},
		),

		PushNotifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "push_notifications_total",
				Help:      "Push notifications by outcome",
			},
			[]string{"status"},
		),
		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_events_published_total",
				Help:      "Outbox events published by type",
			},
			[]string{"event_type"},
		),
		RealtimeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Current number of websocket connections",
		}),
		RealtimeSignals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_signals_total",
			Help:      "Refetch signals written to websocket connections",
		}),

		DBRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_retries_total",
				Help:      "Transaction retries by postgres error code",
			},
			[]string{"code"},
		),

		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total authentication failures",
			},
			[]string{"reason"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total requests rejected by the rate limiter",
		}),
	}
}
