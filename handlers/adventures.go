package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	dbmodels "d20adventures/db/models"
	"d20adventures/middleware"
)

type createAdventureRequest struct {
	SettingID    string   `json:"settingId"`
	PlanID       string   `json:"planId"`
	Title        string   `json:"title,omitempty"`
	InviteEmails []string `json:"inviteEmails,omitempty"`
}

// CreateAdventure serves POST /api/adventures: creates a play-through in the
// waiting-for-players state and optionally emails invitations.
func (h *Handler) CreateAdventure(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createAdventureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}
	if req.SettingID == "" || req.PlanID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "settingId and planId are required")
		return
	}

	adventure, err := h.sessions.CreateAdventure(r.Context(), req.SettingID, req.PlanID, req.Title, user.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.mail != nil && len(req.InviteEmails) > 0 {
		joinURL := fmt.Sprintf("%s/adventures/%s/join",
			strings.TrimRight(h.cfg.PublicBaseURL, "/"), adventure.ID.Hex())
		for _, address := range req.InviteEmails {
			if err := h.mail.SendPartyInvite(address, adventure.Title, joinURL); err != nil {
				log.Printf("[INVITE] failed to email %s: %v", address, err)
			}
		}
	}

	writeJSON(w, http.StatusCreated, adventure)
}

// ListAdventures serves GET /api/adventures: the adventures the
// authenticated user owns or plays in, newest first.
func (h *Handler) ListAdventures(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	adventures, err := h.sessions.ListAdventures(r.Context(), user.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if adventures == nil {
		adventures = []dbmodels.AdventureDocument{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"adventures": adventures,
		"count":      len(adventures),
	})
}

// GetAdventure serves GET /api/adventures/{adventureId}: the assembled view
// of the adventure and its current turn. Any pending NPC action is processed
// before the view is returned.
func (h *Handler) GetAdventure(w http.ResponseWriter, r *http.Request) {
	adventureID := mux.Vars(r)["adventureId"]

	view, err := h.sessions.LoadCurrentAdventure(r.Context(), adventureID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

type joinAdventureRequest struct {
	CharacterID   string `json:"characterId"`
	CharacterName string `json:"characterName"`
	Image         string `json:"image,omitempty"`
}

// JoinAdventure serves POST /api/adventures/{adventureId}/join.
func (h *Handler) JoinAdventure(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req joinAdventureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Bad request")
		return
	}
	if req.CharacterID == "" || req.CharacterName == "" {
		writeErrorMessage(w, http.StatusBadRequest, "characterId and characterName are required")
		return
	}

	character := dbmodels.PartyCharacter{
		ID:     req.CharacterID,
		Name:   req.CharacterName,
		Image:  req.Image,
		UserID: user.UserID,
	}

	if err := h.sessions.JoinAdventure(r.Context(), mux.Vars(r)["adventureId"], character); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// StartAdventure serves POST /api/adventures/{adventureId}/start: activates
// the adventure and returns its first turn.
func (h *Handler) StartAdventure(w http.ResponseWriter, r *http.Request) {
	turn, err := h.sessions.StartAdventure(r.Context(), mux.Vars(r)["adventureId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, turn)
}

// EndAdventure serves POST /api/adventures/{adventureId}/end.
func (h *Handler) EndAdventure(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.EndAdventure(r.Context(), mux.Vars(r)["adventureId"]); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}
