// Package session composes the store, the plan documents, and the game
// master into the turn/encounter progression flow: loading the current state
// of an adventure, advancing turns, and triggering NPC auto-processing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"d20adventures/db"
	dbmodels "d20adventures/db/models"
	"d20adventures/game"
	"d20adventures/models"
)

// Store is what the service needs from the database layer.
type Store interface {
	GetAdventure(ctx context.Context, adventureID string) (*dbmodels.AdventureDocument, error)
	ListAdventuresByUser(ctx context.Context, userID string) ([]dbmodels.AdventureDocument, error)
	InsertAdventure(ctx context.Context, adventure *dbmodels.AdventureDocument) (primitive.ObjectID, error)
	PatchAdventure(ctx context.Context, adventureID string, patch db.AdventurePatch) error
	AddPartyCharacter(ctx context.Context, adventureID string, character dbmodels.PartyCharacter) error
	GetTurn(ctx context.Context, turnID string) (*dbmodels.TurnDocument, error)
	InsertTurn(ctx context.Context, turn *dbmodels.TurnDocument) (primitive.ObjectID, error)
	UpdateTurn(ctx context.Context, turnID string, update db.TurnUpdate) error
	ClaimNPCTurn(ctx context.Context, turnID, characterID string) (bool, error)
	RecordNPCReply(ctx context.Context, turnID, characterID, reply string) error
	ReleaseNPCClaim(ctx context.Context, turnID, characterID string) error
	MarkCharacterComplete(ctx context.Context, turnID, characterID string) error
}

// PlanSource resolves adventure plan documents.
type PlanSource interface {
	LoadPlan(ctx context.Context, settingID, planID string) (*models.AdventurePlan, error)
}

// Narrator generates NPC actions.
type Narrator interface {
	GenerateNPCReply(ctx context.Context, encounter *models.Encounter, npc dbmodels.TurnCharacter, narrative string) (string, error)
}

// NPCOutcome reports what an ensure-NPC-processed call did.
type NPCOutcome string

const (
	NPCProcessingTriggered NPCOutcome = "npc_processing_triggered"
	NoPendingNPC           NPCOutcome = "no_pending_npc"
	TurnNotFound           NPCOutcome = "turn_not_found"
)

// AdventureView is the assembled state a client renders: the adventure, its
// current turn, and the active encounter's image.
type AdventureView struct {
	Adventure      *dbmodels.AdventureDocument `json:"adventure"`
	Turn           *dbmodels.TurnDocument      `json:"turn,omitempty"`
	EncounterImage string                      `json:"encounterImage,omitempty"`
}

// Service is the turn service and adventure session facade.
type Service struct {
	store    Store
	plans    PlanSource
	narrator Narrator
}

// NewService constructs the session service.
func NewService(store Store, plans PlanSource, narrator Narrator) *Service {
	return &Service{store: store, plans: plans, narrator: narrator}
}

// LoadCurrentAdventure fetches an adventure and its current turn. Any pending
// NPC action is processed before returning, so callers always observe a turn
// with no outstanding automated action.
func (s *Service) LoadCurrentAdventure(ctx context.Context, adventureID string) (*AdventureView, error) {
	adventure, err := s.store.GetAdventure(ctx, adventureID)
	if err != nil {
		return nil, err
	}

	view := &AdventureView{Adventure: adventure}
	if adventure.CurrentTurnID.IsZero() {
		return view, nil
	}

	turnID := adventure.CurrentTurnID.Hex()
	if _, err := s.EnsureNPCProcessed(ctx, turnID); err != nil {
		return nil, err
	}

	turn, err := s.store.GetTurn(ctx, turnID)
	if err != nil {
		return nil, err
	}
	view.Turn = turn

	plan, err := s.plans.LoadPlan(ctx, adventure.SettingID, adventure.PlanID)
	if err != nil {
		return nil, err
	}
	if encounter, ok := game.FindEncounter(plan, turn.EncounterID); ok {
		view.EncounterImage = encounter.Image
	}

	return view, nil
}

// ListAdventures returns the adventures a user owns or plays in, newest
// first.
func (s *Service) ListAdventures(ctx context.Context, userID string) ([]dbmodels.AdventureDocument, error) {
	return s.store.ListAdventuresByUser(ctx, userID)
}

// EnsureNPCProcessed checks the turn for a pending NPC action and processes
// it. Safe to call redundantly: the conditional claim in the store guarantees
// at most one caller generates a reply for a given character, so concurrent
// or repeated calls simply report no pending NPC.
func (s *Service) EnsureNPCProcessed(ctx context.Context, turnID string) (NPCOutcome, error) {
	turn, err := s.store.GetTurn(ctx, turnID)
	if errors.Is(err, db.ErrNotFound) {
		return TurnNotFound, nil
	}
	if err != nil {
		return "", err
	}

	npc, pending := game.PendingNPC(turn.Characters)
	if !pending {
		return NoPendingNPC, nil
	}

	claimed, err := s.store.ClaimNPCTurn(ctx, turnID, npc.ID)
	if err != nil {
		return "", err
	}
	if !claimed {
		// Another caller holds or held the claim.
		return NoPendingNPC, nil
	}

	encounter, err := s.resolveEncounter(ctx, turn)
	if err != nil {
		s.releaseClaim(turnID, npc.ID)
		return "", err
	}

	reply, err := s.narrator.GenerateNPCReply(ctx, encounter, npc, turn.Narrative)
	if err != nil {
		s.releaseClaim(turnID, npc.ID)
		return "", fmt.Errorf("NPC processing failed for %s: %w", npc.Name, err)
	}

	if err := s.store.RecordNPCReply(ctx, turnID, npc.ID, reply); err != nil {
		s.releaseClaim(turnID, npc.ID)
		return "", fmt.Errorf("recording NPC reply for %s failed: %w", npc.Name, err)
	}

	log.Printf("[NPC_TRIGGER] processed %s on turn %s", npc.Name, turnID)
	return NPCProcessingTriggered, nil
}

// IsFinalEncounter resolves a turn's encounter through its adventure and plan
// and reports whether it has no outgoing transitions. A missing turn,
// adventure, or plan is an error.
func (s *Service) IsFinalEncounter(ctx context.Context, turnID string) (bool, error) {
	turn, err := s.store.GetTurn(ctx, turnID)
	if err != nil {
		return false, err
	}

	encounter, err := s.resolveEncounter(ctx, turn)
	if err != nil {
		return false, err
	}

	return encounter.IsFinal(), nil
}

// CurrentTurn returns the adventure's current turn, or nil when the adventure
// has not started.
func (s *Service) CurrentTurn(ctx context.Context, adventureID string) (*dbmodels.TurnDocument, error) {
	adventure, err := s.store.GetAdventure(ctx, adventureID)
	if err != nil {
		return nil, err
	}
	if adventure.CurrentTurnID.IsZero() {
		return nil, nil
	}
	return s.store.GetTurn(ctx, adventure.CurrentTurnID.Hex())
}

// CreateTurn writes a new turn. A duplicate (adventure, order) pair fails
// with db.ErrTurnExists.
func (s *Service) CreateTurn(ctx context.Context, turn *dbmodels.TurnDocument) (primitive.ObjectID, error) {
	return s.store.InsertTurn(ctx, turn)
}

// UpdateTurn applies a partial update to a turn.
func (s *Service) UpdateTurn(ctx context.Context, turnID string, update db.TurnUpdate) error {
	return s.store.UpdateTurn(ctx, turnID, update)
}

// PatchAdventure applies a partial update to an adventure.
func (s *Service) PatchAdventure(ctx context.Context, adventureID string, patch db.AdventurePatch) error {
	return s.store.PatchAdventure(ctx, adventureID, patch)
}

// MarkCharacterComplete finishes a character's action for the turn.
func (s *Service) MarkCharacterComplete(ctx context.Context, turnID, characterID string) error {
	return s.store.MarkCharacterComplete(ctx, turnID, characterID)
}

// CreateAdventure starts a new play-through of a plan in the
// waiting-for-players state. The plan is resolved first so a dangling plan id
// fails here rather than at start time.
func (s *Service) CreateAdventure(ctx context.Context, settingID, planID, title, ownerUserID string) (*dbmodels.AdventureDocument, error) {
	plan, err := s.plans.LoadPlan(ctx, settingID, planID)
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = plan.Title
	}

	adventure := &dbmodels.AdventureDocument{
		SettingID:   settingID,
		PlanID:      planID,
		Title:       title,
		OwnerUserID: ownerUserID,
		Status:      dbmodels.StatusWaitingForPlayers,
		Party:       []dbmodels.PartyCharacter{},
	}

	id, err := s.store.InsertAdventure(ctx, adventure)
	if err != nil {
		return nil, err
	}
	adventure.ID = id

	return adventure, nil
}

// JoinAdventure enrolls a player character while the adventure is waiting for
// players.
func (s *Service) JoinAdventure(ctx context.Context, adventureID string, character dbmodels.PartyCharacter) error {
	adventure, err := s.store.GetAdventure(ctx, adventureID)
	if err != nil {
		return err
	}
	if adventure.Status != dbmodels.StatusWaitingForPlayers {
		return fmt.Errorf("adventure %s is not accepting players", adventureID)
	}

	return s.store.AddPartyCharacter(ctx, adventureID, character)
}

// StartAdventure activates a waiting adventure: it builds the roster for the
// plan's first encounter, rolls initiative for everyone, creates turn 1, and
// repoints the adventure at it.
func (s *Service) StartAdventure(ctx context.Context, adventureID string) (*dbmodels.TurnDocument, error) {
	adventure, err := s.store.GetAdventure(ctx, adventureID)
	if err != nil {
		return nil, err
	}
	if adventure.Status != dbmodels.StatusWaitingForPlayers {
		return nil, fmt.Errorf("adventure %s has already started", adventureID)
	}
	if len(adventure.Party) == 0 {
		return nil, fmt.Errorf("adventure %s has no party", adventureID)
	}

	plan, err := s.plans.LoadPlan(ctx, adventure.SettingID, adventure.PlanID)
	if err != nil {
		return nil, err
	}

	firstID := plan.FirstEncounterID()
	encounter, ok := game.FindEncounter(plan, firstID)
	if !ok {
		return nil, fmt.Errorf("plan %s has no encounters", plan.ID)
	}

	turn := &dbmodels.TurnDocument{
		AdventureID: adventure.ID,
		EncounterID: encounter.ID,
		Order:       1,
		Title:       encounter.Title,
		Narrative:   encounter.Intro,
		Characters:  buildRoster(adventure.Party, encounter),
	}

	turnID, err := s.store.InsertTurn(ctx, turn)
	if err != nil {
		return nil, err
	}
	turn.ID = turnID

	now := time.Now()
	status := dbmodels.StatusActive
	err = s.store.PatchAdventure(ctx, adventureID, db.AdventurePatch{
		Status:        &status,
		CurrentTurnID: &turnID,
		StartedAt:     &now,
	})
	if err != nil {
		return nil, err
	}

	return turn, nil
}

// AdvanceTurn follows one of the current encounter's transitions: it creates
// the next turn and repoints the adventure. The transition must be listed on
// the current encounter.
func (s *Service) AdvanceTurn(ctx context.Context, turnID, nextEncounterID string) (*dbmodels.TurnDocument, error) {
	turn, err := s.store.GetTurn(ctx, turnID)
	if err != nil {
		return nil, err
	}

	adventure, err := s.store.GetAdventure(ctx, turn.AdventureID.Hex())
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.LoadPlan(ctx, adventure.SettingID, adventure.PlanID)
	if err != nil {
		return nil, err
	}

	current, ok := game.FindEncounter(plan, turn.EncounterID)
	if !ok {
		return nil, fmt.Errorf("encounter %s not found in plan %s", turn.EncounterID, plan.ID)
	}

	valid := false
	for _, transition := range current.Transitions {
		if transition == nextEncounterID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("encounter %s has no transition to %s", current.ID, nextEncounterID)
	}

	next, ok := game.FindEncounter(plan, nextEncounterID)
	if !ok {
		return nil, fmt.Errorf("encounter %s not found in plan %s", nextEncounterID, plan.ID)
	}

	nextTurn := &dbmodels.TurnDocument{
		AdventureID: adventure.ID,
		EncounterID: next.ID,
		Order:       turn.Order + 1,
		Title:       next.Title,
		Narrative:   next.Intro,
		Characters:  buildRoster(adventure.Party, next),
	}

	nextTurnID, err := s.store.InsertTurn(ctx, nextTurn)
	if err != nil {
		return nil, err
	}
	nextTurn.ID = nextTurnID

	err = s.store.PatchAdventure(ctx, adventure.ID.Hex(), db.AdventurePatch{CurrentTurnID: &nextTurnID})
	if err != nil {
		return nil, err
	}

	return nextTurn, nil
}

// EndAdventure stamps the end timestamp and marks the adventure terminal.
func (s *Service) EndAdventure(ctx context.Context, adventureID string) error {
	now := time.Now()
	status := dbmodels.StatusEnded
	return s.store.PatchAdventure(ctx, adventureID, db.AdventurePatch{
		Status:  &status,
		EndedAt: &now,
	})
}

// resolveEncounter walks turn → adventure → plan → encounter, failing on any
// missing link.
func (s *Service) resolveEncounter(ctx context.Context, turn *dbmodels.TurnDocument) (*models.Encounter, error) {
	adventure, err := s.store.GetAdventure(ctx, turn.AdventureID.Hex())
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.LoadPlan(ctx, adventure.SettingID, adventure.PlanID)
	if err != nil {
		return nil, err
	}

	encounter, ok := game.FindEncounter(plan, turn.EncounterID)
	if !ok {
		return nil, fmt.Errorf("encounter %s not found in plan %s", turn.EncounterID, plan.ID)
	}

	return encounter, nil
}

// releaseClaim gives the NPC claim back after a failed generation so a later
// call can retry. Runs on a fresh context because the request context may
// already be cancelled.
func (s *Service) releaseClaim(turnID, characterID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.ReleaseNPCClaim(ctx, turnID, characterID); err != nil {
		log.Printf("[NPC_TRIGGER] failed to release claim on turn %s: %v", turnID, err)
	}
}

// buildRoster assembles the turn roster: the party plus the encounter's NPCs,
// each with a freshly rolled initiative.
func buildRoster(party []dbmodels.PartyCharacter, encounter *models.Encounter) []dbmodels.TurnCharacter {
	roster := make([]dbmodels.TurnCharacter, 0, len(party)+len(encounter.NPCs))

	for _, pc := range party {
		roster = append(roster, dbmodels.TurnCharacter{
			ID:         pc.ID,
			Name:       pc.Name,
			Type:       dbmodels.CharacterTypePC,
			Image:      pc.Image,
			UserID:     pc.UserID,
			Initiative: game.Roll(game.D20Sides),
		})
	}

	for _, npc := range encounter.NPCs {
		roster = append(roster, dbmodels.TurnCharacter{
			ID:         npc.ID,
			Name:       npc.Name,
			Type:       dbmodels.CharacterTypeNPC,
			Image:      npc.Image,
			Initiative: game.Roll(game.D20Sides),
		})
	}

	return roster
}
