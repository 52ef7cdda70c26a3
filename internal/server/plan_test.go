package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kzxian1201/medical-tourism-planning-system/internal/session"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

type stubResponder struct {
	reply      string
	err        error
	gotInput   string
	gotHistory []models.Turn
	mutate     func(state *models.SessionState)
}

func (s *stubResponder) Respond(ctx context.Context, history []models.Turn, userInput string, state *models.SessionState) (string, error) {
	s.gotInput = userInput
	s.gotHistory = append([]models.Turn(nil), history...)
	if s.mutate != nil {
		s.mutate(state)
	}
	return s.reply, s.err
}

func planContext(t *testing.T, e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestNextStepAgentUninitialized(t *testing.T) {
	e := echo.New()
	handler := &PlanHandler{Agent: nil, Sessions: session.NewInMemoryStore()}

	ctx, _ := planContext(t, e, "/api/v1/plan/next-step", `{"session_id":"s1","user_input":"hi"}`)
	err := handler.nextStep(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", he.Code)
	}
	if msg, _ := he.Message.(string); msg != "Agent is not yet initialized." {
		t.Fatalf("unexpected message: %v", he.Message)
	}
}

func TestNextStepAgentFailureReturnsFallback(t *testing.T) {
	e := echo.New()
	responder := &stubResponder{err: context.DeadlineExceeded}
	handler := &PlanHandler{Agent: responder, Sessions: session.NewInMemoryStore()}

	ctx, rec := planContext(t, e, "/api/v1/plan/next-step", `{"session_id":"s1","user_input":"hi"}`)
	if err := handler.nextStep(ctx); err != nil {
		t.Fatalf("nextStep: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var resp NextStepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AgentResponse.MessageType != models.MessageTypeText {
		t.Fatalf("expected text envelope, got %q", resp.AgentResponse.MessageType)
	}
	if resp.AgentResponse.Content["prompt"] != fallbackPrompt {
		t.Fatalf("expected fallback prompt, got %v", resp.AgentResponse.Content)
	}
}

func TestNextStepAppliesStageTransition(t *testing.T) {
	e := echo.New()
	responder := &stubResponder{
		reply: `{"message_type":"summary_cards","content":{"planning_type":"medical_plans","payload":{"output":[{"treatment_name":"LASIK"}]}}}`,
	}
	handler := &PlanHandler{Agent: responder, Sessions: session.NewInMemoryStore()}

	ctx, rec := planContext(t, e, "/api/v1/plan/next-step", `{"session_id":"s1","user_input":"show plans"}`)
	if err := handler.nextStep(ctx); err != nil {
		t.Fatalf("nextStep: %v", err)
	}
	var resp NextStepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UpdatedSessionState.CurrentStage != models.StageMedicalPlanSelection {
		t.Fatalf("expected stage %q got %q", models.StageMedicalPlanSelection, resp.UpdatedSessionState.CurrentStage)
	}
	if resp.UpdatedSessionState.PlanParameters["medical_plan_options"] == nil {
		t.Fatalf("expected medical plan options stored in state")
	}
}

func TestNextStepSeedsProfileTurn(t *testing.T) {
	e := echo.New()
	responder := &stubResponder{reply: "Welcome! Let me confirm your details."}
	handler := &PlanHandler{Agent: responder, Sessions: session.NewInMemoryStore()}

	body := `{"session_id":"s1","user_input":"hello","session_state":{"profileData":{"nationality":"Chinese","medicalPurpose":"LASIK","departureCity":"Beijing"}}}`
	ctx, _ := planContext(t, e, "/api/v1/plan/next-step", body)
	if err := handler.nextStep(ctx); err != nil {
		t.Fatalf("nextStep: %v", err)
	}

	if len(responder.gotHistory) != 1 {
		t.Fatalf("expected 1 seeded history turn, got %d", len(responder.gotHistory))
	}
	turn := responder.gotHistory[0]
	if turn.Role != models.RoleSystem {
		t.Fatalf("expected system turn, got %q", turn.Role)
	}
	if !strings.Contains(turn.Content, "Nationality: Chinese") ||
		!strings.Contains(turn.Content, "Estimated Budget: N/A") ||
		!strings.Contains(turn.Content, "Departure City: Beijing") {
		t.Fatalf("unexpected profile turn: %s", turn.Content)
	}

	// A second turn on the same session must not re-seed the profile.
	responder.gotHistory = nil
	ctx2, _ := planContext(t, e, "/api/v1/plan/next-step", body)
	if err := handler.nextStep(ctx2); err != nil {
		t.Fatalf("second nextStep: %v", err)
	}
	seeded := 0
	for _, turn := range responder.gotHistory {
		if strings.Contains(turn.Content, "User Profile data received") {
			seeded++
		}
	}
	if seeded != 1 {
		t.Fatalf("profile turn seeded %d times", seeded)
	}
}

func TestNextStepPersistsStateMutations(t *testing.T) {
	e := echo.New()
	responder := &stubResponder{
		reply: "Noted your choice.",
		mutate: func(state *models.SessionState) {
			state.PlanParameters["selected_medical_plan"] = map[string]interface{}{"id": "plan-1"}
		},
	}
	handler := &PlanHandler{Agent: responder, Sessions: session.NewInMemoryStore()}

	ctx, rec := planContext(t, e, "/api/v1/plan/next-step", `{"session_id":"s1","user_input":"I pick plan-1"}`)
	if err := handler.nextStep(ctx); err != nil {
		t.Fatalf("nextStep: %v", err)
	}
	var resp NextStepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	sel, _ := resp.UpdatedSessionState.PlanParameters["selected_medical_plan"].(map[string]interface{})
	if sel["id"] != "plan-1" {
		t.Fatalf("tool state mutation lost: %v", resp.UpdatedSessionState.PlanParameters)
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	e := echo.New()
	handler := &PlanHandler{Sessions: session.NewInMemoryStore()}

	ctx, _ := planContext(t, e, "/api/v1/plan/load-session", `{"session_id":"ghost"}`)
	err := handler.loadSession(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", he.Code)
	}
	if msg, _ := he.Message.(string); msg != "Session with ID 'ghost' not found." {
		t.Fatalf("unexpected message: %v", he.Message)
	}
}

func TestLoadSessionReturnsHistory(t *testing.T) {
	e := echo.New()
	responder := &stubResponder{reply: "Hello there."}
	handler := &PlanHandler{Agent: responder, Sessions: session.NewInMemoryStore()}

	ctx, _ := planContext(t, e, "/api/v1/plan/next-step", `{"session_id":"s1","user_input":"hi"}`)
	if err := handler.nextStep(ctx); err != nil {
		t.Fatalf("nextStep: %v", err)
	}

	ctx2, rec := planContext(t, e, "/api/v1/plan/load-session", `{"session_id":"s1"}`)
	if err := handler.loadSession(ctx2); err != nil {
		t.Fatalf("loadSession: %v", err)
	}
	var resp LoadSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.ChatHistory) != 2 {
		t.Fatalf("expected 2 chat messages, got %d", len(resp.ChatHistory))
	}
	if resp.ChatHistory[0].Sender != "user" || resp.ChatHistory[1].Sender != "agent" {
		t.Fatalf("unexpected senders: %+v", resp.ChatHistory)
	}
	if resp.SessionState.CurrentStage != models.StageInitialWelcome {
		t.Fatalf("unexpected stage %q", resp.SessionState.CurrentStage)
	}
}
