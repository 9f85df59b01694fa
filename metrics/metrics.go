// metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts processed request primitives
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cse",
		Name:      "requests_total",
		Help:      "Request primitives processed, by operation and response status code.",
	}, []string{"operation", "status"})

	// RequestDuration observes end-to-end request handling time
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cse",
		Name:      "request_duration_seconds",
		Help:      "Time spent handling a request primitive.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// NotificationsTotal counts notification deliveries by outcome
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cse",
		Name:      "notifications_total",
		Help:      "Notification deliveries, by outcome.",
	}, []string{"outcome"})

	// AnnouncementsTotal counts announce and de-announce calls by outcome
	AnnouncementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cse",
		Name:      "announcements_total",
		Help:      "Announced copy creations and deletions, by action and outcome.",
	}, []string{"action", "outcome"})

	// AccessDenied counts authorisation denials
	AccessDenied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cse",
		Name:      "access_denied_total",
		Help:      "Requests denied by access control.",
	})
)
