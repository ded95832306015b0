package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Narrative part kinds.
const (
	PartParagraph = "paragraph"
	PartDiceRoll  = "diceroll"
)

const (
	diceRollPrefix = "[DiceRoll:"
	diceRollSuffix = "]"
)

// NarrativePart is one displayable segment of a turn's narrative text: a
// plain paragraph or an embedded dice-roll result.
type NarrativePart struct {
	Type string          `json:"type"`
	Text string          `json:"text,omitempty"`
	Roll *DiceRollResult `json:"roll,omitempty"`
}

// DiceRollResult is a dice-roll outcome recorded inline in narrative text
// using the marker syntax
// [DiceRoll:rollType=...;result=...;difficulty=...;character=...;image=...;success=...].
type DiceRollResult struct {
	RollType   string `json:"rollType"`
	Result     int    `json:"result"`
	Difficulty int    `json:"difficulty"`
	Character  string `json:"character"`
	Image      string `json:"image,omitempty"`
	Success    bool   `json:"success"`
}

// ParseNarrative splits stored narrative text into ordered parts. Lines
// matching the dice-roll marker syntax become dice-roll parts, other
// non-empty lines become paragraphs, and empty lines are dropped. The
// function is pure: the same input always yields the same parts.
func ParseNarrative(text string) []NarrativePart {
	parts := []NarrativePart{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if roll, ok := parseDiceRollMarker(line); ok {
			parts = append(parts, NarrativePart{Type: PartDiceRoll, Roll: roll})
			continue
		}

		parts = append(parts, NarrativePart{Type: PartParagraph, Text: line})
	}

	return parts
}

// FormatDiceRollMarker serializes a dice-roll result back into the marker
// syntax. Parsing the output yields an equal DiceRollResult.
func FormatDiceRollMarker(roll DiceRollResult) string {
	return fmt.Sprintf("[DiceRoll:rollType=%s;result=%d;difficulty=%d;character=%s;image=%s;success=%t]",
		roll.RollType, roll.Result, roll.Difficulty, roll.Character, roll.Image, roll.Success)
}

// parseDiceRollMarker parses one line of marker syntax. Lines that carry the
// marker frame but malformed numeric fields are rejected so they fall back to
// paragraphs rather than rendering a half-parsed roll.
func parseDiceRollMarker(line string) (*DiceRollResult, bool) {
	if !strings.HasPrefix(line, diceRollPrefix) || !strings.HasSuffix(line, diceRollSuffix) {
		return nil, false
	}

	body := strings.TrimSuffix(strings.TrimPrefix(line, diceRollPrefix), diceRollSuffix)
	roll := &DiceRollResult{}

	for _, pair := range strings.Split(body, ";") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}

		switch key {
		case "rollType":
			roll.RollType = value
		case "result":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, false
			}
			roll.Result = n
		case "difficulty":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, false
			}
			roll.Difficulty = n
		case "character":
			roll.Character = value
		case "image":
			roll.Image = value
		case "success":
			roll.Success = value == "true"
		}
	}

	return roll, true
}
