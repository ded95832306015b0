package game

import (
	"reflect"
	"testing"
)

func TestParseNarrativeMixedParts(t *testing.T) {
	text := "Hello.\n\n[DiceRoll:rollType=Stealth;result=15;difficulty=12;character=Thalbern;success=true]\n\nGoodbye."

	parts := ParseNarrative(text)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}

	if parts[0].Type != PartParagraph || parts[0].Text != "Hello." {
		t.Errorf("part 0 = %+v, want paragraph %q", parts[0], "Hello.")
	}

	if parts[1].Type != PartDiceRoll {
		t.Fatalf("part 1 type = %s, want diceroll", parts[1].Type)
	}
	roll := parts[1].Roll
	if roll.RollType != "Stealth" || roll.Result != 15 || roll.Difficulty != 12 ||
		roll.Character != "Thalbern" || !roll.Success {
		t.Errorf("unexpected roll: %+v", roll)
	}

	if parts[2].Type != PartParagraph || parts[2].Text != "Goodbye." {
		t.Errorf("part 2 = %+v, want paragraph %q", parts[2], "Goodbye.")
	}
}

func TestParseNarrativeDropsEmptyLines(t *testing.T) {
	parts := ParseNarrative("\n\n  \nOne line.\n\n\n")
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0].Text != "One line." {
		t.Errorf("got %q", parts[0].Text)
	}
}

func TestParseNarrativeEmptyInput(t *testing.T) {
	if parts := ParseNarrative(""); len(parts) != 0 {
		t.Errorf("expected no parts for empty text, got %d", len(parts))
	}
}

func TestParseNarrativeSuccessFalse(t *testing.T) {
	parts := ParseNarrative("[DiceRoll:rollType=Persuasion;result=3;difficulty=14;character=Mira;success=false]")
	if len(parts) != 1 || parts[0].Type != PartDiceRoll {
		t.Fatalf("expected one diceroll part, got %+v", parts)
	}
	if parts[0].Roll.Success {
		t.Error("success=false must parse to false")
	}
}

func TestParseNarrativeMalformedMarkerFallsBackToParagraph(t *testing.T) {
	line := "[DiceRoll:rollType=Stealth;result=abc;difficulty=12;character=Mira;success=true]"
	parts := ParseNarrative(line)
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0].Type != PartParagraph {
		t.Errorf("malformed marker should render as paragraph, got %s", parts[0].Type)
	}
}

func TestDiceRollMarkerRoundTrip(t *testing.T) {
	tests := []DiceRollResult{
		{RollType: "Stealth", Result: 15, Difficulty: 12, Character: "Thalbern", Success: true},
		{RollType: "Persuasion", Result: 3, Difficulty: 18, Character: "Mira", Image: "/images/mira.png", Success: false},
		{RollType: "Athletics", Result: 20, Difficulty: 10, Character: "Borin", Success: true},
	}

	for _, want := range tests {
		t.Run(want.RollType, func(t *testing.T) {
			marker := FormatDiceRollMarker(want)
			parts := ParseNarrative(marker)
			if len(parts) != 1 || parts[0].Type != PartDiceRoll {
				t.Fatalf("re-parsing marker %q did not yield a diceroll part", marker)
			}
			if !reflect.DeepEqual(*parts[0].Roll, want) {
				t.Errorf("round trip mismatch: got %+v, want %+v", *parts[0].Roll, want)
			}
		})
	}
}

func TestParseNarrativeIsPure(t *testing.T) {
	text := "First.\n\n[DiceRoll:rollType=Stealth;result=9;difficulty=12;character=Mira;success=false]"
	first := ParseNarrative(text)
	second := ParseNarrative(text)
	if !reflect.DeepEqual(first, second) {
		t.Error("the same input must always yield the same parts")
	}
}
