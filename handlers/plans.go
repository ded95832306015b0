package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"d20adventures/middleware"
	"d20adventures/models"
)

// ListPlans serves GET /api/settings/{settingId}/plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.documents.ListPlans(r.Context(), mux.Vars(r)["settingId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plans": plans,
		"count": len(plans),
	})
}

// GetPlan serves GET /api/settings/{settingId}/plans/{planId}.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	plan, err := h.documents.LoadPlan(r.Context(), vars["settingId"], vars["planId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

// SavePlan serves PUT /api/settings/{settingId}/plans: the explicit authoring
// save that overwrites the stored document, creating a timestamped backup of
// any existing one.
func (h *Handler) SavePlan(w http.ResponseWriter, r *http.Request) {
	var plan models.AdventurePlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}

	if err := plan.Validate(); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.documents.SavePlan(r.Context(), mux.Vars(r)["settingId"], &plan); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// GetSetting serves GET /api/settings/{settingId}.
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.documents.LoadSetting(r.Context(), mux.Vars(r)["settingId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setting)
}

// SaveSetting serves PUT /api/settings/{settingId}.
func (h *Handler) SaveSetting(w http.ResponseWriter, r *http.Request) {
	var setting models.Setting
	if err := json.NewDecoder(r.Body).Decode(&setting); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}

	if setting.ID != mux.Vars(r)["settingId"] {
		writeErrorMessage(w, http.StatusBadRequest, "setting id does not match the path")
		return
	}
	if err := setting.Validate(); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.documents.SaveSetting(r.Context(), &setting); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// GetCharacter serves GET /api/characters/{slug} for the authenticated user.
func (h *Handler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	character, err := h.documents.LoadCharacter(r.Context(), user.UserID, mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, character)
}

// SaveCharacter serves PUT /api/characters/{slug} for the authenticated user.
func (h *Handler) SaveCharacter(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var character models.CharacterTemplate
	if err := json.NewDecoder(r.Body).Decode(&character); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}

	character.UserID = user.UserID
	character.Slug = mux.Vars(r)["slug"]
	if character.Name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.documents.SaveCharacter(r.Context(), &character); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
