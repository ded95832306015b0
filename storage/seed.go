package storage

import "d20adventures/models"

// seedPlans are the bundled plans served when object storage has no document
// for a key. They let a fresh deployment offer a playable adventure before
// any authoring has happened.
var seedPlans = map[string]map[string]*models.AdventurePlan{
	"ironhold": {
		"tomb-of-the-forgotten-king": {
			Version:  models.PlanSchemaVersion,
			ID:       "tomb-of-the-forgotten-king",
			Title:    "Tomb of the Forgotten King",
			Teaser:   "An unmarked barrow has opened in the hills above Ironhold.",
			Overview: "The party descends into a barrow sealed for three centuries, bargains with its restless steward, and decides the fate of the king interred below.",
			Sections: []models.Section{
				{
					ID:    "the-descent",
					Title: "The Descent",
					Scenes: []models.Scene{
						{
							ID:    "barrow-gate",
							Title: "The Barrow Gate",
							Encounters: []models.Encounter{
								{
									ID:           "gate-riddle",
									Title:        "The Warded Door",
									Intro:        "Cold air spills from a door of black stone. Runes across its face shift as you approach.",
									Instructions: "The door opens for those who answer the steward's riddle or force the wards.",
									Transitions:  []string{"steward-parley"},
									NPCs: []models.NPCRef{
										{ID: "steward", Name: "Vessik the Steward", Personality: "Formal, weary, bound to protect the tomb."},
									},
								},
								{
									ID:           "steward-parley",
									Title:        "Parley with the Steward",
									Intro:        "A gaunt figure in tarnished mail steps from the shadows, palm raised.",
									Instructions: "Vessik tests the party's intent. Violence wakes the barrow; words may not.",
									Transitions:  []string{"kings-rest"},
									NPCs: []models.NPCRef{
										{ID: "steward", Name: "Vessik the Steward", Personality: "Formal, weary, bound to protect the tomb."},
									},
								},
								{
									ID:           "kings-rest",
									Title:        "The King's Rest",
									Intro:        "The burial chamber opens before you. On the bier, the forgotten king stirs.",
									Instructions: "The party chooses: seal the tomb forever, or wake what sleeps.",
									Transitions:  []string{},
								},
							},
						},
					},
				},
			},
		},
	},
}

// SeedPlan returns a bundled plan for a setting and plan id, if one exists.
func SeedPlan(settingID, planID string) (*models.AdventurePlan, bool) {
	plans, ok := seedPlans[settingID]
	if !ok {
		return nil, false
	}
	plan, ok := plans[planID]
	return plan, ok
}

// SeedPlans returns all bundled plans for a setting.
func SeedPlans(settingID string) []models.AdventurePlan {
	plans := []models.AdventurePlan{}
	for _, plan := range seedPlans[settingID] {
		plans = append(plans, *plan)
	}
	return plans
}

// AllSeedPlans returns every bundled plan across all settings.
func AllSeedPlans() []models.AdventurePlan {
	plans := []models.AdventurePlan{}
	for settingID := range seedPlans {
		plans = append(plans, SeedPlans(settingID)...)
	}
	return plans
}
