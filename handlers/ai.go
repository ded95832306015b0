package handlers

import (
	"encoding/json"
	"net/http"

	"d20adventures/game"
	"d20adventures/gm"
	"d20adventures/models"
	"d20adventures/storage"
)

type rollRequirementRequest struct {
	Reply     string `json:"reply"`
	Character string `json:"character"`
}

type rollRequirementResponse struct {
	RollRequirement *gm.RollRequirement `json:"rollRequirement"`
}

// GetRollRequirement serves POST /api/ai/get-roll-requirement: given a
// character's narrated action, asks the game master whether a dice roll is
// required. A null rollRequirement means no roll is needed.
func (h *Handler) GetRollRequirement(w http.ResponseWriter, r *http.Request) {
	var req rollRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}
	if req.Reply == "" {
		writeErrorMessage(w, http.StatusBadRequest, "reply is required")
		return
	}

	requirement, err := h.gm.GetRollRequirement(r.Context(), req.Reply, req.Character)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rollRequirementResponse{RollRequirement: requirement})
}

type encounterContextRequest struct {
	EncounterID string `json:"encounterId"`
	SettingID   string `json:"settingId,omitempty"`
	PlanID      string `json:"planId,omitempty"`
}

type encounterContextResponse struct {
	Intro        string   `json:"intro"`
	Instructions string   `json:"instructions"`
	Transitions  []string `json:"transitions"`
}

// GetEncounterContext serves POST /api/ai/get-encounter-context: resolves an
// encounter and returns the context the game master prompt needs. When the
// request names a setting and plan, that plan is searched; otherwise the
// bundled plans are consulted.
func (h *Handler) GetEncounterContext(w http.ResponseWriter, r *http.Request) {
	var req encounterContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}
	if req.EncounterID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "encounterId is required")
		return
	}

	var plans []models.AdventurePlan
	if req.SettingID != "" && req.PlanID != "" {
		plan, err := h.documents.LoadPlan(r.Context(), req.SettingID, req.PlanID)
		if err != nil {
			writeError(w, err)
			return
		}
		plans = []models.AdventurePlan{*plan}
	} else {
		plans = storage.AllSeedPlans()
	}

	for i := range plans {
		if encounter, ok := game.FindEncounter(&plans[i], req.EncounterID); ok {
			transitions := encounter.Transitions
			if transitions == nil {
				transitions = []string{}
			}
			writeJSON(w, http.StatusOK, encounterContextResponse{
				Intro:        encounter.Intro,
				Instructions: encounter.Instructions,
				Transitions:  transitions,
			})
			return
		}
	}

	writeErrorMessage(w, http.StatusNotFound, "Not found")
}
