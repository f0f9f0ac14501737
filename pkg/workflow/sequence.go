package workflow

import "github.com/dukex/phasetrack/pkg/models"

// IndexOf returns the catalog position of slug, or -1. The first declaration wins.
func IndexOf(ordered []models.PhaseTemplate, slug string) int {
	if slug == "" {
		return -1
	}

	for i, phase := range ordered {
		if phase.Slug == slug {
			return i
		}
	}

	return -1
}

// Find returns the template for slug.
func Find(ordered []models.PhaseTemplate, slug string) (models.PhaseTemplate, bool) {
	idx := IndexOf(ordered, slug)
	if idx < 0 {
		return models.PhaseTemplate{}, false
	}

	return ordered[idx], true
}

// Next returns the phase following slug in sequence.
func Next(ordered []models.PhaseTemplate, slug string) (models.PhaseTemplate, bool) {
	idx := IndexOf(ordered, slug)
	if idx < 0 || idx+1 >= len(ordered) {
		return models.PhaseTemplate{}, false
	}

	return ordered[idx+1], true
}

// Previous returns the phase preceding slug in sequence.
func Previous(ordered []models.PhaseTemplate, slug string) (models.PhaseTemplate, bool) {
	idx := IndexOf(ordered, slug)
	if idx <= 0 {
		return models.PhaseTemplate{}, false
	}

	return ordered[idx-1], true
}
