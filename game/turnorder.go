package game

import (
	"sort"

	"d20adventures/db/models"
)

// ActingOrder returns the roster sorted by initiative descending. The sort is
// stable, so characters sharing an initiative keep their roster order.
func ActingOrder(characters []models.TurnCharacter) []models.TurnCharacter {
	ordered := make([]models.TurnCharacter, len(characters))
	copy(ordered, characters)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Initiative > ordered[j].Initiative
	})
	return ordered
}

// CurrentActor returns the character whose turn it is to act: the highest
// initiative among characters not yet marked complete, with ties resolved to
// the first such character in roster order. Returns false when every
// character has completed the turn.
func CurrentActor(characters []models.TurnCharacter) (models.TurnCharacter, bool) {
	for _, c := range ActingOrder(characters) {
		if !c.IsComplete {
			return c, true
		}
	}
	return models.TurnCharacter{}, false
}

// PendingNPC returns the current actor if it is an NPC that has not yet
// replied. This is the condition that triggers NPC auto-processing.
func PendingNPC(characters []models.TurnCharacter) (models.TurnCharacter, bool) {
	actor, ok := CurrentActor(characters)
	if !ok {
		return models.TurnCharacter{}, false
	}
	if actor.IsNPC() && !actor.HasReplied {
		return actor, true
	}
	return models.TurnCharacter{}, false
}
