package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/capability"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/provider"
)

// scriptedLLM returns queued completions in order and records the
// messages it was called with.
type scriptedLLM struct {
	completions []provider.Completion
	calls       [][]provider.Message
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	return "", nil
}

func (s *scriptedLLM) GenerateWithTokens(ctx context.Context, prompt, model string, options map[string]interface{}) (string, int64, int64, error) {
	return "", 0, 0, nil
}

func (s *scriptedLLM) Chat(ctx context.Context, model string, messages []provider.Message, tools []provider.ToolSpec) (provider.Completion, error) {
	s.calls = append(s.calls, messages)
	if len(s.completions) == 0 {
		return provider.Completion{Content: "done"}, nil
	}
	next := s.completions[0]
	s.completions = s.completions[1:]
	return next, nil
}

func (s *scriptedLLM) GetAvailableModels() []string { return nil }

func (s *scriptedLLM) GetModelInfo(model string) (provider.ModelInfo, error) {
	return provider.ModelInfo{}, nil
}

func (s *scriptedLLM) CalculateCost(inputTokens, outputTokens int64, model string) float64 { return 0 }

func agentConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LLM.Routing.Planning = "test-model"
	cfg.Agent.MaxToolRounds = 5
	return cfg
}

func echoRegistry(t *testing.T) *capability.Registry {
	t.Helper()
	card := capability.ToolCard{
		Name:    "echo",
		Version: "1.0.0",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"value": map[string]interface{}{"type": "string"},
			},
			"required": []interface{}{"value"},
		},
	}
	reg, err := capability.NewRegistry([]capability.Registration{{
		Card: card,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"echo": args["value"]}, nil
		},
	}}, "", nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestRespondDirectAnswer(t *testing.T) {
	llm := &scriptedLLM{completions: []provider.Completion{{Content: `{"message_type":"text","content":{"prompt":"hi"}}`}}}
	a := New(agentConfig(), llm, echoRegistry(t), nil, nil)

	state := models.NewSessionState()
	out, err := a.Respond(context.Background(), nil, "hello", &state)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !strings.Contains(out, "hi") {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(llm.calls) != 1 {
		t.Fatalf("expected 1 round, got %d", len(llm.calls))
	}
	if llm.calls[0][0].Role != "system" {
		t.Fatal("first message should be the system prompt")
	}
}

func TestRespondRunsToolThenAnswers(t *testing.T) {
	llm := &scriptedLLM{completions: []provider.Completion{
		{ToolCalls: []provider.ToolCall{{ID: "c1", Name: "echo", Arguments: `{"value":"ping"}`}}},
		{Content: "final answer"},
	}}
	a := New(agentConfig(), llm, echoRegistry(t), nil, nil)

	state := models.NewSessionState()
	out, err := a.Respond(context.Background(), nil, "go", &state)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if out != "final answer" {
		t.Fatalf("unexpected output: %q", out)
	}

	second := llm.calls[1]
	last := second[len(second)-1]
	if last.Role != "tool" || last.ToolCallID != "c1" {
		t.Fatalf("expected tool observation, got %+v", last)
	}
	if !strings.Contains(last.Content, "ping") {
		t.Fatalf("observation should carry the tool result, got %q", last.Content)
	}
}

func TestRespondFeedsValidationFailureBack(t *testing.T) {
	llm := &scriptedLLM{completions: []provider.Completion{
		{ToolCalls: []provider.ToolCall{{ID: "c1", Name: "echo", Arguments: `{"value":42}`}}},
		{Content: "recovered"},
	}}
	a := New(agentConfig(), llm, echoRegistry(t), nil, nil)

	state := models.NewSessionState()
	out, err := a.Respond(context.Background(), nil, "go", &state)
	if err != nil {
		t.Fatalf("validation failure must not abort the turn: %v", err)
	}
	if out != "recovered" {
		t.Fatalf("unexpected output: %q", out)
	}

	second := llm.calls[1]
	obs := second[len(second)-1].Content
	if !strings.Contains(obs, "error") {
		t.Fatalf("expected validation error observation, got %q", obs)
	}
}

func TestRespondRoundBudget(t *testing.T) {
	// The model keeps calling tools forever; the loop must stop at the bound.
	loop := provider.Completion{
		Content:   "partial thinking",
		ToolCalls: []provider.ToolCall{{ID: "c", Name: "echo", Arguments: `{"value":"x"}`}},
	}
	llm := &scriptedLLM{completions: []provider.Completion{loop, loop, loop, loop, loop, loop, loop}}
	a := New(agentConfig(), llm, echoRegistry(t), nil, nil)

	state := models.NewSessionState()
	out, err := a.Respond(context.Background(), nil, "go", &state)
	if err != nil {
		t.Fatalf("budget exhaustion should surface the partial answer: %v", err)
	}
	if out != "partial thinking" {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(llm.calls) != 5 {
		t.Fatalf("expected exactly 5 rounds, got %d", len(llm.calls))
	}
}

func TestRespondHistoryRoles(t *testing.T) {
	llm := &scriptedLLM{completions: []provider.Completion{{Content: "ok"}}}
	a := New(agentConfig(), llm, echoRegistry(t), nil, nil)

	history := []models.Turn{
		{Role: models.RoleSystem, Content: "profile summary"},
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAgent, Content: `{"message_type":"text","content":{"prompt":"hi"}}`},
	}
	state := models.NewSessionState()
	if _, err := a.Respond(context.Background(), history, "next", &state); err != nil {
		t.Fatalf("respond: %v", err)
	}

	msgs := llm.calls[0]
	// system prompt + 3 history turns + current input
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if msgs[1].Role != "system" || msgs[2].Role != "user" || msgs[3].Role != "assistant" {
		t.Fatalf("history roles mapped wrong: %+v", msgs)
	}
}

func TestUpdateSessionState(t *testing.T) {
	state := models.NewSessionState()
	state.PlanParameters["medical_plan"] = map[string]interface{}{"old": true}
	state.UserProfile = map[string]interface{}{"departure_city": "Beijing"}
	ctx := withState(context.Background(), &state)

	if _, err := updateSessionState(ctx, map[string]interface{}{"type": "medical_plan", "id": "MP_001"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	selected, _ := state.PlanParameters["medical_plan"].(map[string]interface{})
	if selected["id"] != "MP_001" {
		t.Fatalf("existing plan parameter should hold an id record, got %v", state.PlanParameters["medical_plan"])
	}

	if _, err := updateSessionState(ctx, map[string]interface{}{"type": "departure_city", "id": "Shanghai"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if state.UserProfile["departure_city"] != "Shanghai" {
		t.Fatalf("profile key should hold the bare id, got %v", state.UserProfile["departure_city"])
	}

	if _, err := updateSessionState(ctx, map[string]interface{}{"type": "flight", "id": "FL_002"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if state.PlanParameters["flight"] != "FL_002" {
		t.Fatalf("new key should land in plan parameters, got %v", state.PlanParameters["flight"])
	}
}
