package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "curate",
		Subsystem: "registry",
		Name:      "requests_total",
		Help:      "Number of status change requests",
	}, []string{"type"})

	challengesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "curate",
		Subsystem: "registry",
		Name:      "challenges_total",
		Help:      "Number of challenged requests",
	})

	appealsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "curate",
		Subsystem: "registry",
		Name:      "appeals_total",
		Help:      "Number of fully funded appeals",
	})

	rulingsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "curate",
		Subsystem: "registry",
		Name:      "rulings_total",
		Help:      "Number of applied rulings",
	}, []string{"ruling"})

	withdrawalsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "curate",
		Subsystem: "registry",
		Name:      "withdrawals_total",
		Help:      "Number of non-zero reward withdrawals",
	})

	failedPayoutsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "curate",
		Subsystem: "registry",
		Name:      "failed_payouts_total",
		Help:      "Number of transfers refused by their destination",
	})

	orphanedChargesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "curate",
		Subsystem: "registry",
		Name:      "orphaned_arbitration_charges_total",
		Help:      "Number of arbitrator fees taken by operations that failed afterwards",
	})

	commitLatencyMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "curate",
		Subsystem: "registry",
		Name:      "commit_latency_seconds",
		Help:      "Latency of persisting an operation",
		Buckets:   prometheus.ExponentialBuckets(0.001, 1.5, 20),
	})
)
