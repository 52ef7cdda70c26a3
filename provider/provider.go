package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
)

// Message is one turn of a chat completion conversation. Tool result
// messages carry the ToolCallID they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a model-requested tool invocation with raw JSON arguments.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a callable tool exposed to the model.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Completion is the model's answer to a chat request: either assistant
// content, tool calls, or both, plus token usage.
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int64
	OutputTokens int64
}

// ModelInfo contains display and pricing information about a model
type ModelInfo struct {
	Name            string
	Provider        string
	MaxTokens       int
	CostPer1KInput  float64
	CostPer1KOutput float64
	Description     string
}

// LLMProvider is the interface all LLM backends must satisfy
type LLMProvider interface {
	// Generate runs a single-prompt completion and returns the text.
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
	// GenerateWithTokens is Generate plus input/output token usage.
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)
	// Chat runs a multi-turn completion with optional tool definitions.
	Chat(ctx context.Context, model string, messages []Message, tools []ToolSpec) (Completion, error)
	GetAvailableModels() []string
	GetModelInfo(model string) (ModelInfo, error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// NewProvider creates the configured LLM backend. When several providers
// are configured the lexicographically first supported one wins.
func NewProvider(cfg config.LLMConfig) (LLMProvider, error) {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := cfg.Providers[name]
		switch pc.Type {
		case "openai", "":
			return newOpenAIProvider(pc), nil
		case "anthropic":
			return nil, fmt.Errorf("anthropic provider not implemented yet")
		}
	}
	return nil, fmt.Errorf("no supported LLM provider configured")
}
