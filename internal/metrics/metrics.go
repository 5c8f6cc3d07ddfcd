package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters for the booking flow. A nil *Metrics is a valid no-op.
type Metrics struct {
	bookingsTotal      *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	ignoredEventsTotal *prometheus.CounterVec
	webhooksTotal      *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Reservation status transitions applied",
		}, []string{"from", "to"}),
		ignoredEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "booking",
			Name:      "ignored_payment_events_total",
			Help:      "Gateway events dropped because the reservation had already moved on",
		}, []string{"current_status", "gateway_status"}),
		webhooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Inbound payment webhooks by type and outcome",
		}, []string{"type", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Outbound notifications by event and result",
		}, []string{"event", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.transitionsTotal,
		m.ignoredEventsTotal,
		m.webhooksTotal,
		m.notificationsTotal,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveIgnoredEvent(currentStatus, gatewayStatus string) {
	if m == nil {
		return
	}
	m.ignoredEventsTotal.WithLabelValues(currentStatus, gatewayStatus).Inc()
}

func (m *Metrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhooksTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveNotification(event string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notificationsTotal.WithLabelValues(event, result).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
