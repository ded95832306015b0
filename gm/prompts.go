package gm

import (
	"fmt"
	"strings"

	dbmodels "d20adventures/db/models"
	"d20adventures/models"
)

// BuildNPCPrompt constructs the game-master prompt for an NPC's action in the
// current encounter.
func BuildNPCPrompt(encounter *models.Encounter, npc dbmodels.TurnCharacter, narrative string) string {
	personality := "No personality notes recorded."
	if encounter != nil {
		for _, ref := range encounter.NPCs {
			if ref.ID == npc.ID && ref.Personality != "" {
				personality = ref.Personality
				break
			}
		}
	}

	intro := ""
	instructions := ""
	if encounter != nil {
		intro = encounter.Intro
		instructions = encounter.Instructions
	}
	if narrative == "" {
		narrative = "The turn has just begun; nothing has happened yet."
	}

	return fmt.Sprintf(`You are the game master of a turn-based fantasy role-playing adventure, and it is time for %s to act.

CHARACTER: %s

PERSONALITY: %s

ENCOUNTER SETUP:
%s

ENCOUNTER INSTRUCTIONS FOR THE GAME MASTER:
%s

WHAT HAS HAPPENED SO FAR THIS TURN:
%s

IMPORTANT INSTRUCTIONS:
- Narrate %s's action in the third person, two to four sentences
- Stay in character: the action must follow from the personality notes above
- React to what the other characters have done this turn
- Do not narrate actions for any other character
- Do not decide dice outcomes; describe the attempt, not its success`,
		npc.Name,
		npc.Name,
		personality,
		intro,
		instructions,
		narrative,
		npc.Name)
}

// BuildRollRequirementPrompt constructs the prompt that classifies whether a
// narrated action needs a dice roll, and if so which check and difficulty.
func BuildRollRequirementPrompt(reply, character string) string {
	return fmt.Sprintf(`You are the rules referee of a d20 fantasy role-playing game. A character has just acted; decide whether the action requires a dice roll.

CHARACTER: %s

ACTION:
%s

Rules:
- Trivial actions (talking, walking, looking around) require no roll
- Contested or risky actions (sneaking, persuading under pressure, climbing, attacking) require a roll
- Difficulty is a number between 5 (very easy) and 25 (nearly impossible)
- Roll types are skill names such as Stealth, Persuasion, Athletics, Perception

Respond in JSON format:
{
  "rollRequired": <true or false>,
  "rollType": "<skill name, empty if no roll>",
  "difficulty": <number, 0 if no roll>
}`,
		character,
		strings.TrimSpace(reply))
}
