package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSucceeded     = "succeeded"
	outcomeFailed        = "failed"
	outcomeRefreshFailed = "refresh_failed"
)

var transitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "portal_status_transitions_total",
		Help: "Status transitions submitted to the portal by target status and outcome.",
	},
	[]string{"target", "outcome"},
)

func observeTransition(target, outcome string) {
	transitionsTotal.WithLabelValues(target, outcome).Inc()
}
