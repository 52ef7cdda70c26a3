package server

import (
	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// NextStepRequest drives one turn of the planning conversation.
// SessionState is only consulted on session creation, to seed a system
// message from profile data.
type NextStepRequest struct {
	SessionID    string                 `json:"session_id"`
	UserInput    string                 `json:"user_input"`
	SessionState map[string]interface{} `json:"session_state,omitempty"`
}

// NextStepResponse returns the normalized envelope plus the state the
// frontend should carry forward.
type NextStepResponse struct {
	AgentResponse       models.Envelope     `json:"agent_response"`
	UpdatedSessionState models.SessionState `json:"updated_session_state"`
}

// LoadSessionRequest asks for a historical session by id.
type LoadSessionRequest struct {
	SessionID string `json:"session_id"`
}

// ChatMessage is one history entry in a loaded session.
type ChatMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// LoadSessionResponse returns the raw chat history and session state.
type LoadSessionResponse struct {
	ChatHistory  []ChatMessage       `json:"chat_history"`
	SessionState models.SessionState `json:"session_state"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
