package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kzxian1201/medical-tourism-planning-system/internal/agent"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/session"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/telemetry"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/utils"
)

// Responder runs one conversational turn against the planning agent.
type Responder interface {
	Respond(ctx context.Context, history []models.Turn, userInput string, state *models.SessionState) (string, error)
}

const fallbackPrompt = "I'm sorry, a critical error occurred while processing your request. Please try again or rephrase your input."

// PlanHandler owns the conversational planning endpoints.
type PlanHandler struct {
	Agent    Responder
	Sessions session.Store
	Plans    *store.Store // optional; persists finalized plans when set
	Logger   *log.Logger
}

func (h *PlanHandler) Register(g *echo.Group) {
	g.POST("/next-step", h.nextStep)
	g.POST("/load-session", h.loadSession)
}

// nextStep processes one user turn. Agent and normalizer failures degrade
// to an apologetic text envelope appended to history; the endpoint only
// fails outright before the agent is initialized.
func (h *PlanHandler) nextStep(c echo.Context) error {
	if h.Agent == nil {
		telemetry.RequestsTotal.WithLabelValues("next_step", "unavailable").Inc()
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Agent is not yet initialized.")
	}

	var req NextStepRequest
	if err := c.Bind(&req); err != nil {
		telemetry.RequestsTotal.WithLabelValues("next_step", "bad_request").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	var resp NextStepResponse

	err := h.Sessions.WithLock(ctx, req.SessionID, func(ctx context.Context) error {
		rec, created, err := h.Sessions.Ensure(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if created {
			if turn, ok := profileTurn(req.SessionState); ok {
				rec.History = append(rec.History, turn)
			}
		}

		rec.History = append(rec.History, models.Turn{Role: models.RoleUser, Content: req.UserInput})

		env := h.invoke(ctx, &rec, req.UserInput)
		session.ApplyStageTransition(&rec.State, env)

		serialized, err := json.Marshal(env)
		if err != nil {
			return err
		}
		rec.History = append(rec.History, models.Turn{Role: models.RoleAgent, Content: string(serialized)})

		if env.MessageType == models.MessageTypeFinalPlan {
			h.persistFinalPlan(ctx, rec.ID, env)
		}

		if err := h.Sessions.Save(ctx, rec); err != nil {
			return err
		}
		resp = NextStepResponse{AgentResponse: env, UpdatedSessionState: rec.State}
		return nil
	})
	if err != nil {
		telemetry.RequestsTotal.WithLabelValues("next_step", "error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	telemetry.RequestsTotal.WithLabelValues("next_step", "ok").Inc()
	return c.JSON(http.StatusOK, resp)
}

// invoke runs the agent and normalizes its output, substituting the fixed
// fallback envelope on any failure.
func (h *PlanHandler) invoke(ctx context.Context, rec *session.Record, userInput string) models.Envelope {
	// History excludes the user turn just appended; the agent receives it
	// as the current input.
	history := rec.History[:len(rec.History)-1]
	raw, err := h.Agent.Respond(ctx, history, userInput, &rec.State)
	if err != nil {
		h.logf("agent invocation failed for session %s: %v", rec.ID, err)
		return models.TextEnvelope(fallbackPrompt)
	}
	return agent.Normalize(raw, rec.State)
}

func (h *PlanHandler) persistFinalPlan(ctx context.Context, sessionID string, env models.Envelope) {
	if h.Plans == nil {
		return
	}
	raw, err := json.Marshal(env.Content)
	if err != nil {
		h.logf("final plan for session %s not serializable: %v", sessionID, err)
		return
	}
	if _, err := h.Plans.SaveFinalPlan(ctx, sessionID, raw); err != nil {
		h.logf("saving final plan for session %s: %v", sessionID, err)
	}
}

// loadSession returns a historical session, or 404 when the id is unknown.
func (h *PlanHandler) loadSession(c echo.Context) error {
	var req LoadSessionRequest
	if err := c.Bind(&req); err != nil {
		telemetry.RequestsTotal.WithLabelValues("load_session", "bad_request").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec, err := h.Sessions.Get(c.Request().Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			telemetry.RequestsTotal.WithLabelValues("load_session", "not_found").Inc()
			return echo.NewHTTPError(http.StatusNotFound, "Session with ID '"+req.SessionID+"' not found.")
		}
		telemetry.RequestsTotal.WithLabelValues("load_session", "error").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	history := make([]ChatMessage, 0, len(rec.History))
	for _, turn := range rec.History {
		sender := "agent"
		if turn.Role == models.RoleUser {
			sender = "user"
		}
		history = append(history, ChatMessage{Sender: sender, Content: turn.Content})
	}

	telemetry.RequestsTotal.WithLabelValues("load_session", "ok").Inc()
	return c.JSON(http.StatusOK, LoadSessionResponse{ChatHistory: history, SessionState: rec.State})
}

// profileTurn renders the one-time system message seeded from frontend
// profile data on session creation.
func profileTurn(state map[string]interface{}) (models.Turn, bool) {
	profile, _ := state["profileData"].(map[string]interface{})
	if len(profile) == 0 {
		return models.Turn{}, false
	}
	field := func(key string) string {
		if v := utils.Str(profile[key]); v != "" {
			return v
		}
		return "N/A"
	}
	content := "User Profile data received and confirmed: " +
		"Nationality: " + field("nationality") + ", " +
		"Medical Purpose: " + field("medicalPurpose") + ", " +
		"Estimated Budget: " + field("estimatedBudget") + ", " +
		"Departure City: " + field("departureCity") + ". " +
		"Based on this, start the conversation by confirming these details with the user and asking for confirmation before proceeding."
	return models.Turn{Role: models.RoleSystem, Content: content}, true
}

func (h *PlanHandler) logf(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
