// Package metrics defines the custom Prometheus metrics for the users API.
// Metrics are registered with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "users"

// UsersCreatedTotal counts successfully created users.
var UsersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Total number of users created.",
	},
)

// UsersUpdatedTotal counts successful partial updates.
var UsersUpdatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updated_total",
		Help:      "Total number of user updates applied.",
	},
)

// UsersDeletedTotal counts hard deletes.
var UsersDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deleted_total",
		Help:      "Total number of users deleted.",
	},
)

// StatusChangesTotal counts approve/block operations.
// Label:
//   - status: the status applied ("approved" or "blocked")
var StatusChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_changes_total",
		Help:      "Total number of user status changes, by resulting status.",
	},
	[]string{"status"},
)

// RoleChangesTotal counts role reassignments.
var RoleChangesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_changes_total",
		Help:      "Total number of user role reassignments.",
	},
)

// ValidationFailuresTotal counts requests rejected by input validation.
// Labels:
//   - route: the echo route path (e.g. "/users/:id/role")
//   - field: the first field reported for the request
var ValidationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_failures_total",
		Help:      "Total number of requests rejected by validation.",
	},
	[]string{"route", "field"},
)
