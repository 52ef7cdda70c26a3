package agent

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

// Normalize converts whatever the model returned into the canonical
// envelope. It never fails: malformed output degrades to a text envelope
// and a panic anywhere degrades to a generic apology.
func Normalize(output string, state models.SessionState) (env models.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("normalize panic: %v", r)
			env = models.TextEnvelope("Sorry, something went wrong.")
		}
	}()

	cleaned := stripCodeFences(output)

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		// Unparseable model text is treated as plain prose.
		return models.TextEnvelope(cleaned)
	}

	candidate, ok := parsed.(map[string]interface{})
	if !ok {
		return models.Envelope{
			MessageType: models.MessageTypeText,
			Content:     map[string]interface{}{"prompt": parsed},
		}
	}

	if mismatch := checkDepartureCity(candidate, state); mismatch != nil {
		return *mismatch
	}

	messageType, _ := candidate["message_type"].(string)
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	content, ok := candidate["content"].(map[string]interface{})
	if !ok {
		raw := candidate["content"]
		text := ""
		if raw != nil {
			text = fmt.Sprintf("%v", raw)
		}
		content = map[string]interface{}{"prompt": text}
	}

	return models.Envelope{MessageType: messageType, Content: content}
}

// stripCodeFences removes a surrounding markdown code fence, if any.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	return strings.TrimSpace(s)
}

// checkDepartureCity guards against the plan silently switching departure
// cities: when the session profile and the candidate plan disagree, the
// user is asked which one to use instead of returning the plan.
func checkDepartureCity(candidate map[string]interface{}, state models.SessionState) *models.Envelope {
	sessionCity := state.DepartureCity()
	if sessionCity == "" {
		return nil
	}
	content, _ := candidate["content"].(map[string]interface{})
	if content == nil {
		return nil
	}
	travel, _ := content["travel_arrangement_response"].(map[string]interface{})
	if travel == nil {
		return nil
	}
	planCity, _ := travel["departure_city"].(string)
	planCity = strings.TrimSpace(planCity)
	if planCity == "" {
		return nil
	}
	if strings.EqualFold(sessionCity, planCity) {
		return nil
	}
	env := models.TextEnvelope(fmt.Sprintf(
		"I noticed a mismatch: your profile says the departure city is %s, but the plan suggests %s. Which one should I use to continue planning?",
		sessionCity, planCity))
	return &env
}
