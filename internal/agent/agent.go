package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/capability"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/telemetry"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/provider"
)

var tracer = otel.Tracer("agent")

// Agent runs the bounded tool-calling loop: the model may invoke any
// registered tool zero or more times before producing its final answer.
type Agent struct {
	llm       provider.LLMProvider
	model     string
	registry  *capability.Registry
	maxRounds int
	tracker   *telemetry.CostTracker
	logger    *log.Logger
}

func New(cfg *config.Config, llm provider.LLMProvider, registry *capability.Registry, tracker *telemetry.CostTracker, logger *log.Logger) *Agent {
	if logger == nil {
		logger = log.Default()
	}
	model := cfg.LLM.Routing.Planning
	if model == "" {
		model = cfg.LLM.Routing.Fallback
	}
	return &Agent{
		llm:       llm,
		model:     model,
		registry:  registry,
		maxRounds: cfg.Agent.Normalize().MaxToolRounds,
		tracker:   tracker,
		logger:    logger,
	}
}

// Respond runs one conversational turn and returns the model's raw final
// output. Tool argument validation failures are fed back to the model as
// observations; exhausting the round budget terminates the turn with
// whatever partial answer exists.
func (a *Agent) Respond(ctx context.Context, history []models.Turn, userInput string, state *models.SessionState) (string, error) {
	ctx, span := tracer.Start(ctx, "agent.respond",
		trace.WithAttributes(attribute.String("session.stage", state.CurrentStage)))
	defer span.End()

	ctx = withState(ctx, state)

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{Role: "system", Content: buildSystemPrompt(*state)})
	for _, turn := range history {
		role := "user"
		switch turn.Role {
		case models.RoleAgent:
			role = "assistant"
		case models.RoleSystem:
			role = "system"
		}
		messages = append(messages, provider.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, provider.Message{Role: "user", Content: userInput})

	specs := a.registry.Specs()
	lastContent := ""

	rounds := 0
	for ; rounds < a.maxRounds; rounds++ {
		completion, err := a.llm.Chat(ctx, a.model, messages, specs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			telemetry.AgentRounds.Observe(float64(rounds))
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if a.tracker != nil {
			a.tracker.Record(a.model, completion.InputTokens, completion.OutputTokens,
				a.llm.CalculateCost(completion.InputTokens, completion.OutputTokens, a.model))
		}
		if completion.Content != "" {
			lastContent = completion.Content
		}

		if len(completion.ToolCalls) == 0 {
			telemetry.AgentRounds.Observe(float64(rounds + 1))
			return completion.Content, nil
		}

		messages = append(messages, provider.Message{
			Role:      "assistant",
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range completion.ToolCalls {
			messages = append(messages, provider.Message{
				Role:       "tool",
				Name:       call.Name,
				ToolCallID: call.ID,
				Content:    a.runTool(ctx, call),
			})
		}
	}

	telemetry.AgentRounds.Observe(float64(rounds))
	a.logger.Printf("tool round budget exhausted after %d rounds", rounds)
	span.AddEvent("round_budget_exhausted")
	if lastContent == "" {
		return "", fmt.Errorf("tool round budget exhausted with no answer")
	}
	return lastContent, nil
}

// runTool invokes one model-requested tool call and renders the observation
// the model sees next round. Malformed arguments and validation failures
// come back as observations, not turn failures.
func (a *Agent) runTool(ctx context.Context, call provider.ToolCall) string {
	var args map[string]interface{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			telemetry.ToolInvocationsTotal.WithLabelValues(call.Name, "invalid_args").Inc()
			return fmt.Sprintf(`{"error": "arguments are not valid JSON: %v"}`, err)
		}
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := a.registry.Invoke(ctx, call.Name, args)
	if err != nil {
		var vErr *capability.ValidationError
		if errors.As(err, &vErr) {
			a.logger.Printf("tool %s rejected arguments: %v", call.Name, vErr)
			telemetry.ToolInvocationsTotal.WithLabelValues(call.Name, "invalid_args").Inc()
			return fmt.Sprintf(`{"error": %q}`, vErr.Error())
		}
		a.logger.Printf("tool %s failed: %v", call.Name, err)
		telemetry.ToolInvocationsTotal.WithLabelValues(call.Name, "error").Inc()
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}

	telemetry.ToolInvocationsTotal.WithLabelValues(call.Name, "success").Inc()
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error": "tool result not serializable: %v"}`, err)
	}
	return string(raw)
}
