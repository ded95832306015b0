package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	dbmodels "d20adventures/db/models"
)

type createTurnRequest struct {
	AdventureID string                   `json:"adventureId"`
	EncounterID string                   `json:"encounterId"`
	Order       int                      `json:"order"`
	Title       string                   `json:"title"`
	Subtitle    string                   `json:"subtitle,omitempty"`
	Narrative   string                   `json:"narrative,omitempty"`
	Characters  []dbmodels.TurnCharacter `json:"characters"`
}

// CreateTurn serves POST /api/turns. A duplicate (adventure, order) pair is
// rejected with 409.
func (h *Handler) CreateTurn(w http.ResponseWriter, r *http.Request) {
	var req createTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}

	adventureObjID, err := primitive.ObjectIDFromHex(req.AdventureID)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid adventure id")
		return
	}
	if req.EncounterID == "" || req.Order < 1 {
		writeErrorMessage(w, http.StatusBadRequest, "encounterId and a positive order are required")
		return
	}

	turn := &dbmodels.TurnDocument{
		AdventureID: adventureObjID,
		EncounterID: req.EncounterID,
		Order:       req.Order,
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		Narrative:   req.Narrative,
		Characters:  req.Characters,
	}

	turnID, err := h.sessions.CreateTurn(r.Context(), turn)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"turnId": turnID.Hex()})
}

// EnsureNPCProcessed serves POST /api/turns/{turnId}/ensure-npc: the
// idempotent action a client may call to make sure no automated NPC action is
// outstanding on a turn.
func (h *Handler) EnsureNPCProcessed(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.sessions.EnsureNPCProcessed(r.Context(), mux.Vars(r)["turnId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}

// IsFinalEncounter serves GET /api/turns/{turnId}/is-final.
func (h *Handler) IsFinalEncounter(w http.ResponseWriter, r *http.Request) {
	final, err := h.sessions.IsFinalEncounter(r.Context(), mux.Vars(r)["turnId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"isFinal": final})
}

type advanceTurnRequest struct {
	EncounterID string `json:"encounterId"`
}

// AdvanceTurn serves POST /api/turns/{turnId}/advance: follows one of the
// current encounter's transitions into a new turn.
func (h *Handler) AdvanceTurn(w http.ResponseWriter, r *http.Request) {
	var req advanceTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}
	if req.EncounterID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "encounterId is required")
		return
	}

	turn, err := h.sessions.AdvanceTurn(r.Context(), mux.Vars(r)["turnId"], req.EncounterID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, turn)
}

type completeCharacterRequest struct {
	CharacterID string `json:"characterId"`
}

// CompleteCharacter serves POST /api/turns/{turnId}/complete: marks a
// character's action finished for the turn.
func (h *Handler) CompleteCharacter(w http.ResponseWriter, r *http.Request) {
	var req completeCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}
	if req.CharacterID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "characterId is required")
		return
	}

	if err := h.sessions.MarkCharacterComplete(r.Context(), mux.Vars(r)["turnId"], req.CharacterID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "complete"})
}
