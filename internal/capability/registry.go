// Package capability is the tool registry for the planning agent:
// every callable tool is registered as a signed ToolCard plus a
// handler, and model-chosen arguments are validated against the card's
// input schema before the handler runs.
package capability

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kzxian1201/medical-tourism-planning-system/provider"
)

// ToolCard represents registry metadata for a tool.
type ToolCard struct {
	Name         string                 `json:"name"`
	Version      string                 `json:"version"`
	Description  string                 `json:"description"`
	InputSchema  map[string]interface{} `json:"input_schema"`
	OutputSchema map[string]interface{} `json:"output_schema"`
	CostEstimate float64                `json:"cost_estimate"`
	SideEffects  []string               `json:"side_effects"`
	Checksum     string                 `json:"checksum"`
	Signature    string                 `json:"signature"`
}

// Handler executes a tool with already-validated arguments.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Registration binds a ToolCard to its handler.
type Registration struct {
	Card    ToolCard
	Handler Handler
}

// ValidationError marks argument validation failures so the agent loop
// can feed them back to the model as observations instead of aborting.
type ValidationError struct {
	Tool    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Message)
}

// ErrToolMissing indicates a required tool is not registered.
var ErrToolMissing = fmt.Errorf("required tool missing")

// Registry holds validated tool registrations keyed by name.
type Registry struct {
	tools map[string]Registration
}

// NewRegistry validates card signatures and ensures required tools exist.
func NewRegistry(regs []Registration, signingSecret string, required []string) (*Registry, error) {
	reg := &Registry{tools: make(map[string]Registration)}
	for _, r := range regs {
		if r.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", r.Card.Name)
		}
		if err := validateSignature(r.Card, signingSecret); err != nil {
			return nil, fmt.Errorf("tool %s@%s signature invalid: %w", r.Card.Name, r.Card.Version, err)
		}
		existing, ok := reg.tools[r.Card.Name]
		if !ok || versionGreater(r.Card.Version, existing.Card.Version) {
			reg.tools[r.Card.Name] = r
		}
	}
	for _, name := range required {
		if _, ok := reg.tools[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
		}
	}
	return reg, nil
}

// Tool returns the ToolCard for a tool name.
func (r *Registry) Tool(name string) (ToolCard, bool) {
	if r == nil {
		return ToolCard{}, false
	}
	reg, ok := r.tools[name]
	return reg.Card, ok
}

// Specs exposes the registered tools as provider tool specs, sorted by
// name so the prompt ordering is stable.
func (r *Registry) Specs() []provider.ToolSpec {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]provider.ToolSpec, 0, len(names))
	for _, name := range names {
		card := r.tools[name].Card
		specs = append(specs, provider.ToolSpec{
			Name:        card.Name,
			Description: card.Description,
			Parameters:  card.InputSchema,
		})
	}
	return specs
}

// Invoke validates the arguments against the tool's input schema and
// runs the handler. Unknown tools and schema violations come back as
// *ValidationError.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	reg, ok := r.tools[name]
	if !ok {
		return nil, &ValidationError{Tool: name, Message: "unknown tool"}
	}
	if err := ValidateArgs(reg.Card.InputSchema, args); err != nil {
		return nil, &ValidationError{Tool: name, Message: err.Error()}
	}
	return reg.Handler(ctx, args)
}

// ValidateArgs checks args against a JSON-schema-shaped object schema:
// required keys must be present and declared property types must match.
func ValidateArgs(schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	if req, ok := schema["required"].([]interface{}); ok {
		for _, rv := range req {
			key, _ := rv.(string)
			if key == "" {
				continue
			}
			if _, present := args[key]; !present {
				return fmt.Errorf("missing required field %q", key)
			}
		}
	}

	props, _ := schema["properties"].(map[string]interface{})
	for key, value := range args {
		propSchema, ok := props[key].(map[string]interface{})
		if !ok {
			continue
		}
		wantType, _ := propSchema["type"].(string)
		if wantType == "" {
			continue
		}
		if err := checkType(key, wantType, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(key, wantType string, v interface{}) error {
	if v == nil {
		return nil
	}
	ok := false
	switch wantType {
	case "string":
		_, ok = v.(string)
	case "number":
		_, ok = v.(float64)
		if !ok {
			_, ok = v.(int)
		}
	case "integer":
		switch n := v.(type) {
		case int:
			ok = true
		case float64:
			ok = n == float64(int64(n))
		}
	case "boolean":
		_, ok = v.(bool)
	case "array":
		_, ok = v.([]interface{})
	case "object":
		_, ok = v.(map[string]interface{})
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("field %q must be %s", key, wantType)
	}
	return nil
}

// ComputeChecksum returns a deterministic hash of the ToolCard payload (excluding signature field).
func ComputeChecksum(tc ToolCard) (string, error) {
	payload := map[string]interface{}{
		"name":          tc.Name,
		"version":       tc.Version,
		"description":   tc.Description,
		"input_schema":  tc.InputSchema,
		"output_schema": tc.OutputSchema,
		"cost_estimate": tc.CostEstimate,
		"side_effects":  tc.SideEffects,
	}
	normalized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// SignToolCard computes an HMAC signature using the signing secret.
func SignToolCard(tc ToolCard, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	checksum, err := ComputeChecksum(tc)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(checksum))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Sign fills in the checksum and signature fields of a card. With an
// empty secret the card is left unsigned, which validation permits.
func Sign(tc ToolCard, secret string) (ToolCard, error) {
	checksum, err := ComputeChecksum(tc)
	if err != nil {
		return tc, err
	}
	tc.Checksum = checksum
	if secret != "" {
		sig, err := SignToolCard(tc, secret)
		if err != nil {
			return tc, err
		}
		tc.Signature = sig
	}
	return tc, nil
}

func validateSignature(tc ToolCard, secret string) error {
	if secret == "" {
		return nil
	}
	expected, err := SignToolCard(tc, secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(tc.Signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func versionGreater(a, b string) bool {
	if a == b {
		return false
	}
	// naive semver compare
	return compareParts(splitVersion(a), splitVersion(b)) > 0
}

func splitVersion(v string) []int {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		fmt.Sscanf(p, "%d", &out[i])
	}
	return out
}

func compareParts(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai, bi := 0, 0
		if i < len(a) {
			ai = a[i]
		}
		if i < len(b) {
			bi = b[i]
		}
		if ai > bi {
			return 1
		}
		if ai < bi {
			return -1
		}
	}
	return 0
}
