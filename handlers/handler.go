// Package handlers exposes the HTTP surface of the service. Each handler
// group lives in its own file; Handler carries the constructed dependencies
// so nothing reaches for globals.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"d20adventures/config"
	"d20adventures/db"
	dbmodels "d20adventures/db/models"
	"d20adventures/gm"
	"d20adventures/middleware"
	"d20adventures/models"
	"d20adventures/session"
	"d20adventures/storage"
)

// SessionService is what handlers need from the session layer.
type SessionService interface {
	LoadCurrentAdventure(ctx context.Context, adventureID string) (*session.AdventureView, error)
	ListAdventures(ctx context.Context, userID string) ([]dbmodels.AdventureDocument, error)
	EnsureNPCProcessed(ctx context.Context, turnID string) (session.NPCOutcome, error)
	IsFinalEncounter(ctx context.Context, turnID string) (bool, error)
	CurrentTurn(ctx context.Context, adventureID string) (*dbmodels.TurnDocument, error)
	CreateTurn(ctx context.Context, turn *dbmodels.TurnDocument) (primitive.ObjectID, error)
	UpdateTurn(ctx context.Context, turnID string, update db.TurnUpdate) error
	MarkCharacterComplete(ctx context.Context, turnID, characterID string) error
	CreateAdventure(ctx context.Context, settingID, planID, title, ownerUserID string) (*dbmodels.AdventureDocument, error)
	JoinAdventure(ctx context.Context, adventureID string, character dbmodels.PartyCharacter) error
	StartAdventure(ctx context.Context, adventureID string) (*dbmodels.TurnDocument, error)
	AdvanceTurn(ctx context.Context, turnID, nextEncounterID string) (*dbmodels.TurnDocument, error)
	EndAdventure(ctx context.Context, adventureID string) error
}

// Documents is what handlers need from object storage.
type Documents interface {
	LoadPlan(ctx context.Context, settingID, planID string) (*models.AdventurePlan, error)
	SavePlan(ctx context.Context, settingID string, plan *models.AdventurePlan) error
	ListPlans(ctx context.Context, settingID string) ([]models.AdventurePlan, error)
	LoadSetting(ctx context.Context, settingID string) (*models.Setting, error)
	SaveSetting(ctx context.Context, setting *models.Setting) error
	LoadCharacter(ctx context.Context, userID, slug string) (*models.CharacterTemplate, error)
	SaveCharacter(ctx context.Context, character *models.CharacterTemplate) error
}

// RollAdvisor is what handlers need from the game master.
type RollAdvisor interface {
	GetRollRequirement(ctx context.Context, reply, character string) (*gm.RollRequirement, error)
}

// Mailer sends party invitations. A nil underlying client is a no-op.
type Mailer interface {
	SendPartyInvite(toEmail, adventureTitle, joinURL string) error
}

// Handler holds the service dependencies for every endpoint.
type Handler struct {
	cfg       *config.Config
	sessions  SessionService
	documents Documents
	gm        RollAdvisor
	mail      Mailer
}

// New constructs the handler set.
func New(cfg *config.Config, sessions SessionService, documents Documents, advisor RollAdvisor, mail Mailer) *Handler {
	return &Handler{cfg: cfg, sessions: sessions, documents: documents, gm: advisor, mail: mail}
}

// Routes registers every endpoint on the router.
func (h *Handler) Routes(r *mux.Router) {
	secret := h.cfg.JWTSecret

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/api/adventure/stream/{adventureId}",
		middleware.RequireAuth(secret, h.StreamAdventure)).Methods(http.MethodGet)

	r.HandleFunc("/api/ai/get-roll-requirement", h.GetRollRequirement).Methods(http.MethodPost)
	r.HandleFunc("/api/ai/get-encounter-context", h.GetEncounterContext).Methods(http.MethodPost)

	r.HandleFunc("/api/adventures",
		middleware.RequireAuth(secret, h.CreateAdventure)).Methods(http.MethodPost)
	r.HandleFunc("/api/adventures",
		middleware.RequireAuth(secret, h.ListAdventures)).Methods(http.MethodGet)
	r.HandleFunc("/api/adventures/{adventureId}",
		middleware.RequireAuth(secret, h.GetAdventure)).Methods(http.MethodGet)
	r.HandleFunc("/api/adventures/{adventureId}/join",
		middleware.RequireAuth(secret, h.JoinAdventure)).Methods(http.MethodPost)
	r.HandleFunc("/api/adventures/{adventureId}/start",
		middleware.RequireAuth(secret, h.StartAdventure)).Methods(http.MethodPost)
	r.HandleFunc("/api/adventures/{adventureId}/end",
		middleware.RequireAuth(secret, h.EndAdventure)).Methods(http.MethodPost)

	r.HandleFunc("/api/turns",
		middleware.RequireAuth(secret, h.CreateTurn)).Methods(http.MethodPost)
	r.HandleFunc("/api/turns/{turnId}/ensure-npc",
		middleware.RequireAuth(secret, h.EnsureNPCProcessed)).Methods(http.MethodPost)
	r.HandleFunc("/api/turns/{turnId}/is-final",
		middleware.RequireAuth(secret, h.IsFinalEncounter)).Methods(http.MethodGet)
	r.HandleFunc("/api/turns/{turnId}/advance",
		middleware.RequireAuth(secret, h.AdvanceTurn)).Methods(http.MethodPost)
	r.HandleFunc("/api/turns/{turnId}/complete",
		middleware.RequireAuth(secret, h.CompleteCharacter)).Methods(http.MethodPost)

	r.HandleFunc("/api/settings/{settingId}/plans", h.ListPlans).Methods(http.MethodGet)
	r.HandleFunc("/api/settings/{settingId}/plans/{planId}", h.GetPlan).Methods(http.MethodGet)
	r.HandleFunc("/api/settings/{settingId}/plans",
		middleware.RequireAuth(secret, h.SavePlan)).Methods(http.MethodPut)
	r.HandleFunc("/api/settings/{settingId}", h.GetSetting).Methods(http.MethodGet)
	r.HandleFunc("/api/settings/{settingId}",
		middleware.RequireAuth(secret, h.SaveSetting)).Methods(http.MethodPut)

	r.HandleFunc("/api/characters/{slug}",
		middleware.RequireAuth(secret, h.GetCharacter)).Methods(http.MethodGet)
	r.HandleFunc("/api/characters/{slug}",
		middleware.RequireAuth(secret, h.SaveCharacter)).Methods(http.MethodPut)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps known sentinel errors onto status codes and hides internal
// detail from clients.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, storage.ErrDocumentNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, db.ErrTurnExists):
		writeErrorMessage(w, http.StatusConflict, "Turn already exists for this adventure and order")
	default:
		log.Printf("[HANDLER_ERROR] %v", err)
		writeErrorMessage(w, http.StatusInternalServerError, "Internal error")
	}
}
