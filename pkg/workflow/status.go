// Package workflow derives phase and stage status for references moving through a
// product line, and loads the phase catalog those derivations run against.
package workflow

import (
	"time"

	"github.com/dukex/phasetrack/pkg/models"
)

// DeriveStatus computes the status of a phase at instant now.
//
// The rules are evaluated in order: a phase whose last action was a return is
// returned, a delivered phase is completed, the current phase is in progress
// (or overdue once its elapsed time exceeds the estimate), anything else is pending.
func DeriveStatus(phase models.PhaseView, currentPhaseSlug string, ordered []models.PhaseTemplate, now time.Time) models.PhaseStatus {
	if phase.LastAction != nil && phase.LastAction.Type == models.ActionReturn {
		return models.PhaseStatusReturned
	}

	if phase.DeliveredAt != nil {
		return models.PhaseStatusCompleted
	}

	phaseIndex := IndexOf(ordered, phase.Slug)
	if phaseIndex < 0 {
		phaseIndex = phase.Index
	}

	currentIndex := IndexOf(ordered, currentPhaseSlug)

	isCurrent := currentPhaseSlug != "" &&
		(phase.Slug == currentPhaseSlug || (currentIndex >= 0 && phaseIndex == currentIndex))

	if isCurrent {
		if phase.ReceivedAt == nil {
			return models.PhaseStatusInProgress
		}

		if now.Sub(*phase.ReceivedAt) > EstimatedDuration(phase.PhaseTemplate) {
			return models.PhaseStatusOverdue
		}

		return models.PhaseStatusInProgress
	}

	// Phases after the current one and phases never reached are both pending.
	return models.PhaseStatusPending
}

// EstimatedDuration converts the catalog estimate of a phase to a duration.
func EstimatedDuration(phase models.PhaseTemplate) time.Duration {
	return time.Duration(phase.EstimatedHours * float64(time.Hour))
}
