package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"d20adventures/auth"
	"d20adventures/config"
	"d20adventures/db"
	dbmodels "d20adventures/db/models"
	"d20adventures/gm"
	"d20adventures/models"
	"d20adventures/session"
)

const testSecret = "handlers-test-secret"

type fakeSessions struct {
	turn        *dbmodels.TurnDocument
	turnErr     error
	outcome     session.NPCOutcome
	isFinal     bool
	adventure   *dbmodels.AdventureDocument
	list        []dbmodels.AdventureDocument
	createdTurn primitive.ObjectID
}

func (f *fakeSessions) LoadCurrentAdventure(context.Context, string) (*session.AdventureView, error) {
	if f.adventure == nil {
		return nil, fmt.Errorf("adventure: %w", db.ErrNotFound)
	}
	return &session.AdventureView{Adventure: f.adventure, Turn: f.turn}, nil
}

func (f *fakeSessions) ListAdventures(context.Context, string) ([]dbmodels.AdventureDocument, error) {
	return f.list, nil
}

func (f *fakeSessions) EnsureNPCProcessed(context.Context, string) (session.NPCOutcome, error) {
	return f.outcome, nil
}

func (f *fakeSessions) IsFinalEncounter(context.Context, string) (bool, error) {
	return f.isFinal, nil
}

func (f *fakeSessions) CurrentTurn(context.Context, string) (*dbmodels.TurnDocument, error) {
	return f.turn, f.turnErr
}

func (f *fakeSessions) CreateTurn(_ context.Context, turn *dbmodels.TurnDocument) (primitive.ObjectID, error) {
	if !f.createdTurn.IsZero() {
		return primitive.NilObjectID, fmt.Errorf("duplicate: %w", db.ErrTurnExists)
	}
	f.createdTurn = primitive.NewObjectID()
	return f.createdTurn, nil
}

func (f *fakeSessions) UpdateTurn(context.Context, string, db.TurnUpdate) error { return nil }

func (f *fakeSessions) MarkCharacterComplete(context.Context, string, string) error { return nil }

func (f *fakeSessions) CreateAdventure(_ context.Context, settingID, planID, title, ownerUserID string) (*dbmodels.AdventureDocument, error) {
	return &dbmodels.AdventureDocument{
		ID:          primitive.NewObjectID(),
		SettingID:   settingID,
		PlanID:      planID,
		Title:       title,
		OwnerUserID: ownerUserID,
		Status:      dbmodels.StatusWaitingForPlayers,
	}, nil
}

func (f *fakeSessions) JoinAdventure(context.Context, string, dbmodels.PartyCharacter) error {
	return nil
}

func (f *fakeSessions) StartAdventure(context.Context, string) (*dbmodels.TurnDocument, error) {
	return f.turn, nil
}

func (f *fakeSessions) AdvanceTurn(context.Context, string, string) (*dbmodels.TurnDocument, error) {
	return f.turn, nil
}

func (f *fakeSessions) EndAdventure(context.Context, string) error { return nil }

type fakeDocuments struct {
	plan *models.AdventurePlan
}

func (f *fakeDocuments) LoadPlan(_ context.Context, settingID, planID string) (*models.AdventurePlan, error) {
	if f.plan != nil && f.plan.ID == planID {
		return f.plan, nil
	}
	return nil, fmt.Errorf("plan %s/%s: %w", settingID, planID, db.ErrNotFound)
}

func (f *fakeDocuments) SavePlan(context.Context, string, *models.AdventurePlan) error { return nil }

func (f *fakeDocuments) ListPlans(context.Context, string) ([]models.AdventurePlan, error) {
	if f.plan == nil {
		return []models.AdventurePlan{}, nil
	}
	return []models.AdventurePlan{*f.plan}, nil
}

func (f *fakeDocuments) LoadSetting(_ context.Context, settingID string) (*models.Setting, error) {
	return nil, fmt.Errorf("setting %s: %w", settingID, db.ErrNotFound)
}

func (f *fakeDocuments) SaveSetting(context.Context, *models.Setting) error { return nil }

func (f *fakeDocuments) LoadCharacter(_ context.Context, userID, slug string) (*models.CharacterTemplate, error) {
	return nil, fmt.Errorf("character %s/%s: %w", userID, slug, db.ErrNotFound)
}

func (f *fakeDocuments) SaveCharacter(context.Context, *models.CharacterTemplate) error { return nil }

type fakeAdvisor struct {
	requirement *gm.RollRequirement
	err         error
}

func (f *fakeAdvisor) GetRollRequirement(context.Context, string, string) (*gm.RollRequirement, error) {
	return f.requirement, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          testSecret,
		PublicBaseURL:      "https://play.example.com",
		StreamPollInterval: time.Millisecond,
		StreamMaxLifetime:  50 * time.Millisecond,
	}
}

type fakeMailer struct {
	invites []string
}

func (f *fakeMailer) SendPartyInvite(toEmail, adventureTitle, joinURL string) error {
	f.invites = append(f.invites, joinURL)
	return nil
}

func testRouter(t *testing.T, sessions *fakeSessions, documents *fakeDocuments, advisor *fakeAdvisor) *mux.Router {
	t.Helper()
	if sessions == nil {
		sessions = &fakeSessions{}
	}
	if documents == nil {
		documents = &fakeDocuments{}
	}
	if advisor == nil {
		advisor = &fakeAdvisor{}
	}

	h := New(testConfig(), sessions, documents, advisor, nil)
	r := mux.NewRouter()
	h.Routes(r)
	return r
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken("user_1", "player@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func TestStreamRequiresAuth(t *testing.T) {
	r := testRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/adventure/stream/0123456789abcdef", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestStreamRejectsShortID(t *testing.T) {
	r := testRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/adventure/stream/short", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStreamEmitsTurnOnceWhileUnchanged(t *testing.T) {
	turn := &dbmodels.TurnDocument{
		ID:          primitive.NewObjectID(),
		AdventureID: primitive.NewObjectID(),
		EncounterID: "intro",
		Order:       1,
	}
	sessions := &fakeSessions{turn: turn}
	r := testRouter(t, sessions, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/adventure/stream/0123456789abcdef", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()

	// The handler returns when the configured stream lifetime elapses.
	r.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}

	body := rec.Body.String()
	if got := strings.Count(body, "data: "); got != 1 {
		t.Errorf("an unchanged turn should be pushed exactly once, got %d frames:\n%s", got, body)
	}
	if !strings.Contains(body, turn.ID.Hex()) {
		t.Errorf("frame should carry the turn, body:\n%s", body)
	}
}

func TestStreamEmitsErrorEventAndStaysOpen(t *testing.T) {
	sessions := &fakeSessions{turnErr: errors.New("backend down")}
	r := testRouter(t, sessions, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/adventure/stream/0123456789abcdef", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Errorf("expected an error event, body:\n%s", body)
	}
	// The poll loop keeps the connection open after failures, so with a
	// 1ms interval and a 50ms lifetime there are several error frames.
	if strings.Count(body, "event: error") < 2 {
		t.Errorf("the stream should keep polling after a failure, body:\n%s", body)
	}
}

func TestGetRollRequirementNull(t *testing.T) {
	r := testRouter(t, nil, nil, &fakeAdvisor{requirement: nil})

	req := httptest.NewRequest(http.MethodPost, "/api/ai/get-roll-requirement",
		strings.NewReader(`{"reply": "I wave hello.", "character": "Thalbern"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"rollRequirement":null}` {
		t.Errorf("body = %s", body)
	}
}

func TestGetRollRequirementPresent(t *testing.T) {
	advisor := &fakeAdvisor{requirement: &gm.RollRequirement{RollType: "Stealth", Difficulty: 12}}
	r := testRouter(t, nil, nil, advisor)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/get-roll-requirement",
		strings.NewReader(`{"reply": "I sneak past.", "character": "Thalbern"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"rollType":"Stealth"`) || !strings.Contains(body, `"difficulty":12`) {
		t.Errorf("body = %s", body)
	}
}

func TestGetRollRequirementRequiresReply(t *testing.T) {
	r := testRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/get-roll-requirement",
		strings.NewReader(`{"character": "Thalbern"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetEncounterContextFromPlan(t *testing.T) {
	documents := &fakeDocuments{plan: &models.AdventurePlan{
		Version: models.PlanSchemaVersion,
		ID:      "test-plan",
		Title:   "Test Plan",
		Sections: []models.Section{{
			ID: "s1", Title: "S1",
			Scenes: []models.Scene{{
				ID: "sc1", Title: "Sc1",
				Encounters: []models.Encounter{{
					ID:           "intro",
					Title:        "Intro",
					Intro:        "The party arrives.",
					Instructions: "Set the scene.",
					Transitions:  []string{"finale"},
				}},
			}},
		}},
	}}
	r := testRouter(t, nil, documents, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/get-encounter-context",
		strings.NewReader(`{"encounterId": "intro", "settingId": "ironhold", "planId": "test-plan"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`"intro":"The party arrives."`, `"instructions":"Set the scene."`, `"transitions":["finale"]`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s:\n%s", want, body)
		}
	}
}

func TestGetEncounterContextNotFound(t *testing.T) {
	r := testRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/get-encounter-context",
		strings.NewReader(`{"encounterId": "no-such-encounter"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"Not found"}` {
		t.Errorf("body = %s", body)
	}
}

func TestGetEncounterContextFromBundledPlans(t *testing.T) {
	r := testRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/get-encounter-context",
		strings.NewReader(`{"encounterId": "gate-riddle"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "steward-parley") {
		t.Errorf("bundled encounter should list its transition, body: %s", rec.Body.String())
	}
}

func TestCreateTurnDuplicateIsConflict(t *testing.T) {
	sessions := &fakeSessions{}
	r := testRouter(t, sessions, nil, nil)

	payload := fmt.Sprintf(`{"adventureId": %q, "encounterId": "intro", "order": 1, "title": "Turn 1"}`,
		primitive.NewObjectID().Hex())

	first := httptest.NewRequest(http.MethodPost, "/api/turns", strings.NewReader(payload))
	first.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}

	second := httptest.NewRequest(http.MethodPost, "/api/turns", strings.NewReader(payload))
	second.Header.Set("Authorization", bearer(t))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, second)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", rec.Code)
	}
}

func TestEnsureNPCProcessedEndpoint(t *testing.T) {
	sessions := &fakeSessions{outcome: session.NPCProcessingTriggered}
	r := testRouter(t, sessions, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/turns/0123456789abcdef01234567/ensure-npc", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "npc_processing_triggered") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAdventureEndpointsRequireAuth(t *testing.T) {
	r := testRouter(t, nil, nil, nil)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/adventures"},
		{http.MethodGet, "/api/adventures/0123456789abcdef01234567"},
		{http.MethodPost, "/api/turns"},
		{http.MethodGet, "/api/turns/0123456789abcdef01234567/is-final"},
	}

	for _, tc := range paths {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestListAdventuresEndpoint(t *testing.T) {
	sessions := &fakeSessions{list: []dbmodels.AdventureDocument{
		{ID: primitive.NewObjectID(), Title: "Newer"},
		{ID: primitive.NewObjectID(), Title: "Older"},
	}}
	r := testRouter(t, sessions, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/adventures", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"count":2`) {
		t.Errorf("body missing count:\n%s", body)
	}
	if strings.Index(body, "Newer") > strings.Index(body, "Older") {
		t.Errorf("listing should preserve the service's newest-first order:\n%s", body)
	}
}

func TestListAdventuresEmpty(t *testing.T) {
	r := testRouter(t, &fakeSessions{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/adventures", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"adventures":[]`) {
		t.Errorf("an empty listing should serialize as [], body: %s", rec.Body.String())
	}
}

func TestCreateAdventureSendsAbsoluteInviteLinks(t *testing.T) {
	mailer := &fakeMailer{}
	h := New(testConfig(), &fakeSessions{}, &fakeDocuments{}, &fakeAdvisor{}, mailer)
	r := mux.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/adventures",
		strings.NewReader(`{"settingId": "ironhold", "planId": "test-plan", "inviteEmails": ["mira@example.com"]}`))
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}
	if len(mailer.invites) != 1 {
		t.Fatalf("invites sent = %d, want 1", len(mailer.invites))
	}
	joinURL := mailer.invites[0]
	if !strings.HasPrefix(joinURL, "https://play.example.com/adventures/") || !strings.HasSuffix(joinURL, "/join") {
		t.Errorf("invite link must be absolute, got %q", joinURL)
	}
}

func TestGetAdventureNotFound(t *testing.T) {
	r := testRouter(t, &fakeSessions{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/adventures/0123456789abcdef01234567", nil)
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	r := testRouter(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
