// Package metrics содержит Prometheus-коллекторы HTTP-слоя и аутентификации.
// Все методы безопасны для nil *Metrics: тесты и сборки без метрик передают nil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "annotator"

// Metrics — набор коллекторов сервиса.
type Metrics struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	authEvents    *prometheus.CounterVec
	tokenFailures *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_events_total",
				Help:      "Login, register, refresh and logout outcomes",
			},
			[]string{"event", "outcome"},
		),
		tokenFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_token_failures_total",
				Help:      "Rejected credentials by failure kind",
			},
			[]string{"kind"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.httpRequests, m.httpDuration, m.authEvents, m.tokenFailures, m.rateLimited)
	}

	return m
}

// ObserveHTTP учитывает завершённый запрос.
func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}

	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// AuthEvent учитывает исход операции сессии (event: login/register/refresh/logout).
func (m *Metrics) AuthEvent(event string, ok bool) {
	if m == nil {
		return
	}

	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// TokenFailure учитывает отказ аутентификации по виду (missing/expired/signature/malformed).
func (m *Metrics) TokenFailure(kind string) {
	if m == nil {
		return
	}

	m.tokenFailures.WithLabelValues(kind).Inc()
}

// RateLimited учитывает отклонённый лимитером запрос.
func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}

	m.rateLimited.WithLabelValues(route).Inc()
}
