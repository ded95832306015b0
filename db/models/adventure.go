package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Adventure status values.
const (
	StatusWaitingForPlayers = "waiting_for_players"
	StatusActive            = "active"
	StatusEnded             = "ended"
)

// Character types within a turn roster.
const (
	CharacterTypePC  = "pc"
	CharacterTypeNPC = "npc"
)

// AdventureDocument is one live play-through of an adventure plan.
type AdventureDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SettingID     string             `bson:"setting_id" json:"settingId"`
	PlanID        string             `bson:"plan_id" json:"planId"`
	Title         string             `bson:"title" json:"title"`
	OwnerUserID   string             `bson:"owner_user_id" json:"ownerUserId"`
	Status        string             `bson:"status" json:"status"`
	Party         []PartyCharacter   `bson:"party" json:"party"`
	CurrentTurnID primitive.ObjectID `bson:"current_turn_id,omitempty" json:"currentTurnId,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	StartedAt     *time.Time         `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	EndedAt       *time.Time         `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
}

// PartyCharacter is a player character enrolled in an adventure.
type PartyCharacter struct {
	ID     string `bson:"id" json:"id"`
	Name   string `bson:"name" json:"name"`
	Image  string `bson:"image,omitempty" json:"image,omitempty"`
	UserID string `bson:"user_id" json:"userId"`
}

// TurnDocument is one persisted step of play. Order is unique per adventure,
// enforced by a unique compound index on (adventure_id, order).
type TurnDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AdventureID primitive.ObjectID `bson:"adventure_id" json:"adventureId"`
	EncounterID string             `bson:"encounter_id" json:"encounterId"`
	Order       int                `bson:"order" json:"order"`
	Title       string             `bson:"title" json:"title"`
	Subtitle    string             `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Narrative   string             `bson:"narrative" json:"narrative"`
	Characters  []TurnCharacter    `bson:"characters" json:"characters"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// TurnCharacter is a character's state within a single turn. Among characters
// not yet marked complete, the one with the highest initiative is the current
// actor. Processing is the claim flag set by the conditional update that
// guards NPC auto-processing against double triggers.
type TurnCharacter struct {
	ID         string `bson:"id" json:"id"`
	Name       string `bson:"name" json:"name"`
	Type       string `bson:"type" json:"type"`
	Image      string `bson:"image,omitempty" json:"image,omitempty"`
	UserID     string `bson:"user_id,omitempty" json:"userId,omitempty"`
	Initiative int    `bson:"initiative" json:"initiative"`
	IsComplete bool   `bson:"is_complete" json:"isComplete"`
	HasReplied bool   `bson:"has_replied" json:"hasReplied"`
	Processing bool   `bson:"processing" json:"-"`
}

// IsNPC reports whether the character is played by the game master.
func (c *TurnCharacter) IsNPC() bool {
	return c.Type == CharacterTypeNPC
}
