package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// actionsTotal counts processed deliver and return requests.
	// Labels: action, outcome (applied, rejected, failed)
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phasetrack",
		Subsystem: "actions",
		Name:      "processed_total",
		Help:      "Deliver and return requests processed",
	}, []string{"action", "outcome"})

	// overdueAnnounced counts phases announced as overdue.
	overdueAnnounced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "phasetrack",
		Subsystem: "overdue",
		Name:      "announced_total",
		Help:      "Phases announced as overdue",
	})
)

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "applied"
	case IsValidationError(err) || IsNotFoundError(err) || IsConflictError(err):
		return "rejected"
	default:
		return "failed"
	}
}
