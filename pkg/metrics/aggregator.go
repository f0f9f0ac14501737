// Package metrics computes progress, schedule variance and risk over timeline snapshots.
// Every function is pure: callers pass the instant they want elapsed time measured at.
package metrics

import (
	"math"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
)

const (
	// HighRiskOverdueThreshold is the overdue phase count above which risk is high.
	HighRiskOverdueThreshold = 2

	// VarianceTolerancePercent is the absolute schedule variance above which risk is at least medium.
	VarianceTolerancePercent = 20.0

	// DefaultEfficiency is reported while no phase has been completed.
	DefaultEfficiency = 100.0
)

// HoursBetween returns the hours elapsed between two instants, never negative. The
// value is not rounded; aggregates round for display.
func HoursBetween(from, to time.Time) float64 {
	if to.Before(from) {
		return 0
	}

	return to.Sub(from).Hours()
}

// CompletionPercentage is the share of completed phases, rounded to an integer.
func CompletionPercentage(phases []models.PhaseView) int {
	if len(phases) == 0 {
		return 0
	}

	completed := countStatus(phases, models.PhaseStatusCompleted)

	return int(math.Round(float64(completed) / float64(len(phases)) * 100))
}

// Efficiency compares estimated and actual hours of completed phases.
func Efficiency(phases []models.PhaseView) float64 {
	estimated, actual := completedHours(phases)
	if actual <= 0 {
		return DefaultEfficiency
	}

	return round2(estimated / actual * 100)
}

// VariancePercentage is the overrun of completed phases relative to their estimate.
func VariancePercentage(phases []models.PhaseView) float64 {
	estimated, actual := completedHours(phases)
	if estimated <= 0 {
		return 0
	}

	return round2((actual - estimated) / estimated * 100)
}

// StageVariances compares actual and estimated hours per stage.
func StageVariances(stages []models.StageView) []models.StageVariance {
	variances := make([]models.StageVariance, 0, len(stages))

	for _, stage := range stages {
		var estimated, actual float64

		complete := len(stage.Phases) > 0

		for _, phase := range stage.Phases {
			estimated += phase.EstimatedHours

			if phase.ActualHours != nil {
				actual += *phase.ActualHours
			}

			if phase.Status != models.PhaseStatusCompleted {
				complete = false
			}
		}

		variance := round2(actual - estimated)

		var percentage float64
		if estimated > 0 {
			percentage = round2(variance / estimated * 100)
		}

		variances = append(variances, models.StageVariance{
			Stage:              stage.Slug,
			EstimatedHours:     estimated,
			ActualHours:        round2(actual),
			Variance:           variance,
			VariancePercentage: percentage,
			Complete:           complete,
			OnSchedule:         variance <= 0 || complete,
		})
	}

	return variances
}

// RiskLevel classifies schedule risk from the overdue count and overall variance.
func RiskLevel(overduePhases int, variancePercentage float64) models.RiskLevel {
	switch {
	case overduePhases > HighRiskOverdueThreshold:
		return models.RiskHigh
	case overduePhases > 0 || math.Abs(variancePercentage) > VarianceTolerancePercent:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Summarize builds the aggregates displayed with a timeline. Hours still running on
// the current phase count towards actual hours, measured at now.
func Summarize(phases []models.PhaseView, stages []models.StageView, now time.Time) models.TimelineSummary {
	var estimated, actual float64

	for _, phase := range phases {
		estimated += phase.EstimatedHours

		switch {
		case phase.ActualHours != nil:
			actual += *phase.ActualHours
		case phase.ReceivedAt != nil && phase.DeliveredAt == nil:
			actual += HoursBetween(*phase.ReceivedAt, now)
		}
	}

	overdue := countStatus(phases, models.PhaseStatusOverdue)
	variance := VariancePercentage(phases)

	return models.TimelineSummary{
		CompletionPercentage: CompletionPercentage(phases),
		CompletedPhases:      countStatus(phases, models.PhaseStatusCompleted),
		TotalPhases:          len(phases),
		OverduePhases:        overdue,
		EstimatedHours:       round2(estimated),
		ActualHours:          round2(actual),
		Efficiency:           Efficiency(phases),
		VariancePercentage:   variance,
		RiskLevel:            RiskLevel(overdue, variance),
		Stages:               StageVariances(stages),
	}
}

func completedHours(phases []models.PhaseView) (float64, float64) {
	var estimated, actual float64

	for _, phase := range phases {
		if phase.Status != models.PhaseStatusCompleted || phase.ActualHours == nil {
			continue
		}

		estimated += phase.EstimatedHours
		actual += *phase.ActualHours
	}

	return estimated, actual
}

func countStatus(phases []models.PhaseView, status models.PhaseStatus) int {
	count := 0

	for _, phase := range phases {
		if phase.Status == status {
			count++
		}
	}

	return count
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
