package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsIssued counts token pairs minted at login.
	SessionsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authcore_sessions_issued_total",
			Help: "Token pairs issued at login",
		},
	)

	// SessionsRenewed counts successful rotations.
	SessionsRenewed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authcore_sessions_renewed_total",
			Help: "Token pairs rotated on renewal",
		},
	)

	// SessionsRevoked counts logouts that revoked an active pair.
	SessionsRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authcore_sessions_revoked_total",
			Help: "Token pairs revoked at logout",
		},
	)

	// AuthFailures counts rejected session operations by reason.
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_auth_failures_total",
			Help: "Rejected session operations by reason",
		},
		[]string{"reason"},
	)

	// StoreUnavailable counts credential store failures that forced a
	// fail-closed rejection.
	StoreUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authcore_store_unavailable_total",
			Help: "Credential store errors surfaced as unavailable",
		},
	)
)
