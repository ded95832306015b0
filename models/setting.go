package models

import "fmt"

// Setting is the authoring-level world document for a game world: locations
// and organizations edited independently of any live adventure.
type Setting struct {
	Version       int            `json:"version"`
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Image         string         `json:"image,omitempty"`
	Locations     []Location     `json:"locations,omitempty"`
	Organizations []Organization `json:"organizations,omitempty"`
}

// Location is one place in a setting.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Organization is a faction or group within a setting.
type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Validate rejects malformed setting documents at the storage boundary.
func (s *Setting) Validate() error {
	if s.Version > PlanSchemaVersion {
		return fmt.Errorf("unsupported setting schema version %d", s.Version)
	}
	if s.ID == "" {
		return fmt.Errorf("setting id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("setting name is required")
	}
	return nil
}

// CharacterTemplate is a reusable player character definition saved by a user
// outside of any adventure.
type CharacterTemplate struct {
	Slug      string `json:"slug"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Archetype string `json:"archetype,omitempty"`
	Backstory string `json:"backstory,omitempty"`
}
