// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Checkins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Name:      "checkins_total",
		Help:      "Attendance mutations by subject kind and action.",
	}, []string{"kind", "action"})

	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Name:      "broadcasts_total",
		Help:      "Walkie-talkie clips by final status.",
	}, []string{"status"})

	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "academy",
		Name:      "live_sessions",
		Help:      "Groups in session at the last live board resolution.",
	})

	DraftSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Name:      "assessment_draft_saves_total",
		Help:      "Batch assessment saves by result.",
	}, []string{"result"})

	StaleClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "academy",
		Name:      "stale_checkins_closed_total",
		Help:      "Open check-ins closed by the sweeper.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "academy",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// GinMiddleware records request latency labelled by the matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
