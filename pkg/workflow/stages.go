package workflow

import "github.com/dukex/phasetrack/pkg/models"

const unassignedStage = "unassigned"

// GroupByStage partitions the flat phase list by stage without changing its order.
// Phases that belong to no known stage are collected in a trailing group.
func GroupByStage(ordered []models.PhaseView, stages []models.StageTemplate) []models.StageView {
	groups := make([]models.StageView, 0, len(stages))
	position := make(map[string]int, len(stages))

	for _, stage := range stages {
		position[stage.Slug] = len(groups)
		groups = append(groups, models.StageView{
			Slug:   stage.Slug,
			Name:   stage.Name,
			Phases: []models.PhaseView{},
		})
	}

	var orphans []models.PhaseView

	for _, phase := range ordered {
		idx, ok := position[phase.Stage]
		if !ok {
			orphans = append(orphans, phase)

			continue
		}

		groups[idx].Phases = append(groups[idx].Phases, phase)
	}

	if len(orphans) > 0 {
		groups = append(groups, models.StageView{
			Slug:   unassignedStage,
			Name:   "Unassigned",
			Phases: orphans,
		})
	}

	return groups
}
