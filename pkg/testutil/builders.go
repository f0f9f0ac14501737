// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
)

// Logger returns a logger that discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// SQLiteDSN returns the DSN of a fresh SQLite database file owned by the test.
func SQLiteDSN(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "phasetrack.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
}

// Sampling returns a small product line mirroring the sampling and fitting stages of the default catalog.
func Sampling() models.ProductLine {
	return models.ProductLine{
		Slug: "garment",
		Name: "Garment",
		Stages: []models.StageTemplate{
			{
				Slug: "sampling",
				Name: "Sampling",
				Phases: []models.PhaseTemplate{
					{Slug: "md-trazo", Name: "MD Trazo", Area: "sample-room", Sequence: 1, EstimatedHours: 4},
					{Slug: "md-tendido", Name: "MD Tendido", Area: "sample-room", Sequence: 2, EstimatedHours: 2},
					{Slug: "md-corte", Name: "MD Corte", Area: "sample-room", Sequence: 3, EstimatedHours: 6},
					{Slug: "md-confeccion", Name: "MD Confeccion", Area: "sample-room", Sequence: 4, EstimatedHours: 10},
					{Slug: "md-terminacion", Name: "MD Terminacion", Area: "sample-room", Sequence: 5, EstimatedHours: 4},
				},
			},
			{
				Slug: "fitting",
				Name: "Fitting",
				Phases: []models.PhaseTemplate{
					{Slug: "pt-medidas", Name: "PT Medidas", Area: "fit", Sequence: 1, EstimatedHours: 3},
					{Slug: "pt-prueba", Name: "PT Prueba", Area: "fit", Sequence: 2, EstimatedHours: 4},
					{Slug: "pt-fitting", Name: "PT Fitting", Area: "fit", Sequence: 3, EstimatedHours: 5},
					{Slug: "pt-aprobacion", Name: "PT Aprobacion", Area: "fit", Sequence: 4, EstimatedHours: 2},
				},
			},
		},
	}
}

// CreateTestReference creates a Reference with default values that can be overridden.
func CreateTestReference(overrides ...func(*models.Reference)) *models.Reference {
	now := time.Now().UTC().Truncate(time.Microsecond)
	phase := "md-trazo"

	reference := &models.Reference{
		Code:         "REF-001",
		Collection:   "SS26",
		ProductLine:  "garment",
		CurrentPhase: &phase,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, override := range overrides {
		override(reference)
	}

	return reference
}

// AtPhase sets the current phase of the reference.
func AtPhase(slug string) func(*models.Reference) {
	return func(r *models.Reference) {
		r.CurrentPhase = &slug
	}
}

// WithCode sets the reference code.
func WithCode(code string) func(*models.Reference) {
	return func(r *models.Reference) {
		r.Code = code
	}
}

// CreateTestUser creates a User with default values that can be overridden.
func CreateTestUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		Code:   "U-001",
		Name:   "Ana Cortes",
		Email:  "ana@example.com",
		Area:   "sample-room",
		Role:   "operator",
		Status: models.UserStatusActive,
	}

	for _, override := range overrides {
		override(user)
	}

	return user
}
