package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts handled requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	// HTTPDuration observes request latency by method and route.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	// Logins counts login attempts by outcome.
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "logins_total", Help: "Login attempts by outcome",
	}, []string{"outcome"})
	// AuthRejections counts guard rejections by internal reason.
	AuthRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "auth_rejections_total", Help: "Requests rejected by the auth guard",
	}, []string{"reason"})
	// RateLimited counts requests turned away with 429.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance", Name: "rate_limited_total", Help: "Requests rejected by the rate limiter",
	})
	// AttendanceWrites counts mark and update outcomes.
	AttendanceWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance", Name: "attendance_writes_total", Help: "Attendance mark and update outcomes",
	}, []string{"op", "outcome"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, Logins, AuthRejections, RateLimited, AttendanceWrites)
}

// Handler serves the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveRequest records one finished request.
func ObserveRequest(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
