package portal

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess      = "success"
	outcomeTransport    = "transport_error"
	outcomeUnauthorized = "unauthorized"
	outcomeForbidden    = "forbidden"
	outcomeClientError  = "client_error"
	outcomeServerError  = "server_error"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_api_requests_total",
			Help: "Portal API calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	commentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_comment_cache_lookups_total",
			Help: "Commentary cache lookups by result.",
		},
		[]string{"result"},
	)
)

func observeRequest(operation, outcome string) {
	apiRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

func outcomeOf(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return outcomeUnauthorized
	case status == http.StatusForbidden:
		return outcomeForbidden
	case status >= 500:
		return outcomeServerError
	default:
		return outcomeClientError
	}
}
