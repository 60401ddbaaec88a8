// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels for auth metrics.
const (
	OpRegister          = "register"
	OpLogin             = "login"
	OpLogout            = "logout"
	OpGetCurrentAccount = "get_current_account"
)

// OutcomeSuccess labels a successful operation; failures use their Kind.
const OutcomeSuccess = "success"

// OperationsTotal counts auth operations by operation and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "safeconnect_auth_operations_total",
		Help: "Total number of auth operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// HashDuration observes time spent inside the password hasher.
// Use RegisterMetrics to register this with a Prometheus registry.
var HashDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "safeconnect_auth_hash_duration_seconds",
		Help:    "Password hash and verify duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	},
	[]string{"operation"},
)

// SessionsPurged counts expired sessions removed by the janitor.
// Use RegisterMetrics to register this with a Prometheus registry.
var SessionsPurged = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "safeconnect_auth_sessions_purged_total",
		Help: "Total number of expired sessions purged",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OperationsTotal)
	reg.MustRegister(HashDuration)
	reg.MustRegister(SessionsPurged)
}

func recordOperation(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = string(KindOf(err))
	}
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func recordHashDuration(operation string, d time.Duration) {
	HashDuration.WithLabelValues(operation).Observe(d.Seconds())
}
