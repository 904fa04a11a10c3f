package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"golang-reconciliation-portal/internal/models"
)

const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
)

var (
	phaseTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_ingestion_phase_transitions_total",
			Help: "Upload job phase changes by the phase entered.",
		},
		[]string{"phase"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_ingestion_runs_total",
			Help: "Finished upload jobs by outcome.",
		},
		[]string{"outcome"},
	)
)

func observePhase(phase models.Phase) {
	phaseTransitionsTotal.WithLabelValues(phase.String()).Inc()
}

func observeRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}
