package game

import "d20adventures/models"

// FindEncounter searches a plan for an encounter by id: sections in order,
// then scenes in order, then encounters in order. The first match wins, so
// the result is deterministic even if ids are not unique. Returns false when
// the id is empty or absent from the plan.
func FindEncounter(plan *models.AdventurePlan, encounterID string) (*models.Encounter, bool) {
	if plan == nil || encounterID == "" {
		return nil, false
	}

	for si := range plan.Sections {
		section := &plan.Sections[si]
		for ci := range section.Scenes {
			scene := &section.Scenes[ci]
			for ei := range scene.Encounters {
				if scene.Encounters[ei].ID == encounterID {
					return &scene.Encounters[ei], true
				}
			}
		}
	}

	return nil, false
}
