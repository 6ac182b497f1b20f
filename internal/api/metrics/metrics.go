// Package metrics defines and registers all custom Prometheus metrics for the
// auth service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation and exposed through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthOperationsTotal counts credential and token operations.
// Labels:
//   - operation: "login", "register", "refresh", "logout", "update_profile", "delete_user", "change_role"
//   - result: "ok" or the error code returned to the caller (e.g. "INVALID_CREDENTIALS")
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of auth operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// TokenValidationsTotal counts trust-oracle answers.
// Label:
//   - result: "valid" or "invalid"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of token validations, labelled by result (valid/invalid).",
	},
	[]string{"result"},
)

// ── Sync metrics ──────────────────────────────────────────────────────────────

// SyncJobsTotal counts processed sync jobs.
// Labels:
//   - kind: the job kind (e.g. "identity.create", "profile.create")
//   - result: "delivered", "skipped" or "failed"
var SyncJobsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_jobs_total",
		Help:      "Total number of sync jobs processed, by kind and result.",
	},
	[]string{"kind", "result"},
)

// SyncJobsDroppedTotal counts jobs rejected because a worker queue was full
// or the dispatcher was closed.
var SyncJobsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_jobs_dropped_total",
		Help:      "Total number of sync jobs dropped before processing.",
	},
	[]string{"kind"},
)

// SyncQueueDepth tracks the current number of jobs waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var SyncQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_queue_depth",
		Help:      "Current number of sync jobs pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// SyncJobDuration measures how long a single job takes, collaborator call included.
var SyncJobDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_job_duration_seconds",
		Help:      "Duration of sync job processing from dequeue to completion.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"kind"},
)
