package models

import "slices"

// PhaseTemplate is a catalog entry describing one unit of work owned by an area.
type PhaseTemplate struct {
	Slug           string  `json:"slug"            yaml:"slug"`
	Name           string  `json:"name"            yaml:"name"`
	Area           string  `json:"area"            yaml:"area"`
	Sequence       int     `json:"sequence"        yaml:"sequence"`
	EstimatedHours float64 `json:"estimated_hours" yaml:"estimated_hours"`
	Stage          string  `json:"stage"           yaml:"-"`
}

// StageTemplate groups consecutive phases for display.
type StageTemplate struct {
	Slug   string          `json:"slug"   yaml:"slug"`
	Name   string          `json:"name"   yaml:"name"`
	Phases []PhaseTemplate `json:"phases" yaml:"phases"`
}

// EstimatedHours is the sum of the estimates of the stage phases.
func (s StageTemplate) EstimatedHours() float64 {
	var total float64
	for _, phase := range s.Phases {
		total += phase.EstimatedHours
	}

	return total
}

// ProductLine is the fixed phase sequence followed by every reference of the line.
type ProductLine struct {
	Slug   string          `json:"slug"   yaml:"slug"`
	Name   string          `json:"name"   yaml:"name"`
	Stages []StageTemplate `json:"stages" yaml:"stages"`
}

// OrderedPhases flattens the stages in declaration order. Phases inside a stage are
// ordered by sequence; equal sequences keep their declaration order.
func (p ProductLine) OrderedPhases() []PhaseTemplate {
	var ordered []PhaseTemplate

	for _, stage := range p.Stages {
		phases := slices.Clone(stage.Phases)
		slices.SortStableFunc(phases, func(a, b PhaseTemplate) int {
			return a.Sequence - b.Sequence
		})

		for _, phase := range phases {
			phase.Stage = stage.Slug
			ordered = append(ordered, phase)
		}
	}

	return ordered
}
