package models

import "fmt"

// PlanSchemaVersion is the document version this build reads and writes.
// Documents with a higher version are rejected at the storage boundary.
const PlanSchemaVersion = 1

// AdventurePlan is an authored template for a playable scenario: an ordered
// tree of sections, scenes, and encounters. Plans are immutable during play;
// the authoring workflow overwrites the stored document through an explicit
// save.
type AdventurePlan struct {
	Version  int       `json:"version"`
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Teaser   string    `json:"teaser,omitempty"`
	Overview string    `json:"overview,omitempty"`
	Image    string    `json:"image,omitempty"`
	Sections []Section `json:"sections"`
}

// Section groups related scenes under a shared title.
type Section struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Summary string  `json:"summary,omitempty"`
	Scenes  []Scene `json:"scenes"`
}

// Scene groups the encounters of one narrative sequence.
type Scene struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Summary    string      `json:"summary,omitempty"`
	Encounters []Encounter `json:"encounters"`
}

// Encounter is the leaf of a plan: one narrative beat. Transitions list the
// ids of encounters reachable from here; an encounter with no transitions is
// the final encounter of the plan.
type Encounter struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Intro        string   `json:"intro,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Image        string   `json:"image,omitempty"`
	Transitions  []string `json:"transitions"`
	NPCs         []NPCRef `json:"npcs,omitempty"`
}

// NPCRef names a non-player character that appears in an encounter.
type NPCRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	Personality string `json:"personality,omitempty"`
}

// IsFinal reports whether the encounter has no outgoing transitions.
func (e *Encounter) IsFinal() bool {
	return len(e.Transitions) == 0
}

// FirstEncounterID returns the id of the first encounter in plan order, or ""
// for a plan with no encounters.
func (p *AdventurePlan) FirstEncounterID() string {
	for _, section := range p.Sections {
		for _, scene := range section.Scenes {
			for _, enc := range scene.Encounters {
				return enc.ID
			}
		}
	}
	return ""
}

// Validate rejects malformed plan documents before they reach domain logic.
func (p *AdventurePlan) Validate() error {
	if p.Version > PlanSchemaVersion {
		return fmt.Errorf("unsupported plan schema version %d", p.Version)
	}
	if p.ID == "" {
		return fmt.Errorf("plan id is required")
	}
	if p.Title == "" {
		return fmt.Errorf("plan title is required")
	}
	for _, section := range p.Sections {
		if section.ID == "" {
			return fmt.Errorf("plan %s: section id is required", p.ID)
		}
		for _, scene := range section.Scenes {
			if scene.ID == "" {
				return fmt.Errorf("plan %s: scene id is required in section %s", p.ID, section.ID)
			}
			for _, enc := range scene.Encounters {
				if enc.ID == "" {
					return fmt.Errorf("plan %s: encounter id is required in scene %s", p.ID, scene.ID)
				}
			}
		}
	}
	return nil
}
