package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	OrderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Accepted order status transitions by source and target status",
		},
		[]string{"from_status", "to_status"},
	)

	OrderTransitionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_rejected_total",
			Help: "Rejected order status transitions by requested status",
		},
		[]string{"to_status"},
	)

	LiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connections",
			Help: "Open live update connections",
		},
	)

	LiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_subscriptions",
			Help: "Active (connection, order) subscriptions",
		},
	)

	LiveEventsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "live_events_published_total",
			Help: "Status events published to order channels",
		},
	)

	LiveEventsDeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "live_events_delivered_total",
			Help: "Status events queued to subscribed connections",
		},
	)

	LiveEventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "live_events_dropped_total",
			Help: "Status events dropped because a connection's outbound queue was full",
		},
	)

	PaymentCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Payment confirmations received by outcome",
		},
		[]string{"outcome"},
	)
)

// Register registers all collectors with reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		OrderTransitionsTotal,
		OrderTransitionsRejectedTotal,
		LiveConnections,
		LiveSubscriptions,
		LiveEventsPublishedTotal,
		LiveEventsDeliveredTotal,
		LiveEventsDroppedTotal,
		PaymentCallbacksTotal,
	)
}
