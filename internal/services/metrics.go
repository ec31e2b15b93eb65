package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	reportsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safenet_reports_submitted_total",
			Help: "Reports submitted, by category.",
		},
		[]string{"category"},
	)

	reportTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safenet_report_transitions_total",
			Help: "Report status changes, by target status.",
		},
		[]string{"status"},
	)

	providerVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safenet_provider_verifications_total",
			Help: "Provider verification records written, by outcome.",
		},
		[]string{"status"},
	)

	aidTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safenet_aid_request_transitions_total",
			Help: "Aid request status changes, by target status.",
		},
		[]string{"status"},
	)
)

// Collectors returns the domain metrics for registration at startup.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{reportsSubmitted, reportTransitions, providerVerifications, aidTransitions}
}
