package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// переходы вызовов по событию
	ChallengeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "challenge",
		Name:      "transitions_total",
		Help:      "Challenge state transitions by event",
	}, []string{"event"})

	// отклоненные операции над вызовами по категории ошибки
	ChallengeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "challenge",
		Name:      "rejections_total",
		Help:      "Rejected challenge operations by operation and error kind",
	}, []string{"op", "kind"})

	AttestationsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "attestation",
		Name:      "issued_total",
		Help:      "Signed attestations by kind",
	}, []string{"kind"})

	AttestationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "attestation",
		Name:      "rejections_total",
		Help:      "Refused attestation requests by kind and reason",
	}, []string{"kind", "reason"})

	NotificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "notify",
		Name:      "deliveries_total",
		Help:      "Notification delivery attempts by channel and result",
	}, []string{"channel", "result"})

	ExpiredBySweep = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "challenge",
		Name:      "expired_by_sweep_total",
		Help:      "Pending challenges expired by the periodic sweep",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})
)
