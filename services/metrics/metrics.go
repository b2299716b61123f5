package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gymportal"

// Outcome label values shared by the portal counters.
const (
	OutcomeSuccess            = "success"
	OutcomeNotFound           = "not_found"
	OutcomeRateLimited        = "rate_limited"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeNotAuthenticated   = "not_authenticated"
	OutcomeExpired            = "expired"
	OutcomeInvalidSession     = "invalid_session"
	OutcomeError              = "error"
	OutcomeSkipped            = "skipped"
)

var apiBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry prometheus.Gatherer

	PINRequests   *prometheus.CounterVec
	SignIns       *prometheus.CounterVec
	SessionChecks *prometheus.CounterVec
	EmailsSent    *prometheus.CounterVec

	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestTotal    *prometheus.CounterVec
}

// New registers the collectors on reg. Passing a fresh prometheus.NewRegistry
// keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PINRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pin_requests_total",
				Help:      "Portal PIN issuance requests by outcome",
			},
			[]string{"outcome"},
		),
		SignIns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sign_ins_total",
				Help:      "Portal PIN sign-in attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_checks_total",
				Help:      "Member session verifications by outcome",
			},
			[]string{"outcome"},
		),
		EmailsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pin_emails_total",
				Help:      "PIN emails handed to the mail provider by outcome",
			},
			[]string{"outcome"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_server_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   apiBuckets,
			},
			[]string{"http_request_method", "http_route", "http_response_status_code"},
		),
		HTTPRequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_server_request_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"http_request_method", "http_route", "http_response_status_code"},
		),
	}
}

func (m *Metrics) PINRequest(outcome string) {
	if m == nil {
		return
	}
	m.PINRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SignIn(outcome string) {
	if m == nil {
		return
	}
	m.SignIns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionCheck(outcome string) {
	if m == nil {
		return
	}
	m.SessionChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Email(outcome string) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records duration and count per matched echo route.
func (m *Metrics) Middleware(skipPaths ...string) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skip[c.Request().URL.Path]; ok {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			labels := []string{c.Request().Method, route, strconv.Itoa(status)}
			m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			m.HTTPRequestTotal.WithLabelValues(labels...).Inc()

			return err
		}
	}
}
