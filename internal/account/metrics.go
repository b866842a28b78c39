// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Workflow names used as metric labels.
const (
	WorkflowRegister      = "register"
	WorkflowUnregister    = "unregister"
	WorkflowPasswordReset = "password_reset"
)

// Outcome constants for workflow metrics.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalid         = "invalid"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeUnknownEmail    = "unknown_email"
	OutcomePartial         = "partial"
	OutcomeError           = "error"
)

// WorkflowTotal counts finished workflows.
// Use RegisterMetrics to register this with a Prometheus registry.
var WorkflowTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_workflow_total",
		Help: "Total number of account workflows by outcome",
	},
	[]string{"workflow", "outcome"},
)

// WorkflowDuration is the histogram for workflow duration.
var WorkflowDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "accounts_workflow_duration_seconds",
		Help:    "Account workflow duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"workflow"},
)

// NotificationFailures counts swallowed notifier failures.
var NotificationFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_notification_failures_total",
		Help: "Total number of account notifications that failed without failing the workflow",
	},
	[]string{"kind"},
)

// RegisterMetrics registers account package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(WorkflowTotal)
	reg.MustRegister(WorkflowDuration)
	reg.MustRegister(NotificationFailures)
}

func recordWorkflow(workflow, outcome string, started time.Time) {
	WorkflowTotal.WithLabelValues(workflow, outcome).Inc()
	WorkflowDuration.WithLabelValues(workflow).Observe(time.Since(started).Seconds())
}
