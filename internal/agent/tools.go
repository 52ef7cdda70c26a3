package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/budget"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/capability"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/planner"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

// Tool names exposed to the model.
const (
	ToolMedicalPlanning    = "medical_planning"
	ToolTravelArrangement  = "travel_arrangement_planning"
	ToolTravelLogistics    = "travel_logistics_planning"
	ToolUpdateSessionState = "update_session_state"
	ToolCalculateBudget    = "calculate_budget"
)

type stateCtxKey struct{}

// withState attaches the mutable session state to the context so the
// state-touching tools can reach it during a loop round.
func withState(ctx context.Context, state *models.SessionState) context.Context {
	return context.WithValue(ctx, stateCtxKey{}, state)
}

// StateFrom returns the session state attached by the agent loop, or nil.
func StateFrom(ctx context.Context) *models.SessionState {
	state, _ := ctx.Value(stateCtxKey{}).(*models.SessionState)
	return state
}

// decodeArgs round-trips validated argument maps into a typed request.
func decodeArgs(args map[string]interface{}, dst interface{}) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func objectSchema(properties map[string]interface{}, required ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func strProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func boolProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": desc}
}

func intProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": desc}
}

func strArrayProp(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": desc,
	}
}

// BuildRegistry assembles the signed tool cards backing the planning agent.
func BuildRegistry(cfg *config.Config, medical *planner.MedicalPlanner, travel *planner.TravelPlanner, logistics *planner.LogisticsPlanner) (*capability.Registry, error) {
	secret := cfg.Agent.SigningSecret

	cards := []struct {
		card    capability.ToolCard
		handler capability.Handler
	}{
		{
			card: capability.ToolCard{
				Name:    ToolMedicalPlanning,
				Version: "1.0.0",
				Description: "Generates comprehensive medical travel plan options, including treatments, " +
					"estimated costs, recommended clinics and visa requirements. Call this when the user " +
					"has confirmed their medical purpose, nationality and destination country.",
				InputSchema: objectSchema(map[string]interface{}{
					"medical_purpose":      strProp("The treatment or procedure sought, e.g. 'knee replacement'."),
					"patient_nationality":  strProp("The patient's nationality, e.g. 'US Citizen'."),
					"destination_country":  strProp("The destination country for treatment."),
					"estimated_budget_usd": strProp("Optional budget range, e.g. '$15000 - $25000'."),
				}, "medical_purpose", "patient_nationality", "destination_country"),
				CostEstimate: 0.05,
			},
			handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				var req planner.MedicalRequest
				if err := decodeArgs(args, &req); err != nil {
					return nil, err
				}
				return medical.Plan(ctx, req), nil
			},
		},
		{
			card: capability.ToolCard{
				Name:    ToolTravelArrangement,
				Version: "1.0.0",
				Description: "Plans travel arrangements for a confirmed medical plan: flight options, " +
					"accessible accommodation and weather for the stay. Call this after the user has " +
					"selected a medical plan and confirmed dates.",
				InputSchema: objectSchema(map[string]interface{}{
					"departure_city":              strProp("The city the patient departs from."),
					"medical_destination_city":    strProp("The destination city for treatment."),
					"medical_destination_country": strProp("The destination country."),
					"check_in_date":               strProp("Accommodation check-in date, YYYY-MM-DD."),
					"check_out_date":              strProp("Accommodation check-out date, YYYY-MM-DD."),
					"estimated_return_date":       strProp("Optional return flight date, YYYY-MM-DD."),
					"num_guests_medical_plan":     intProp("Number of travellers."),
					"flight_preferences":          strArrayProp("Optional preferences such as 'direct'."),
					"accommodation_requirements":  strArrayProp("Optional requirements such as 'near hospital'."),
					"accessibility_needs":         strArrayProp("Optional accessibility needs."),
					"visa_assistance_needed":      boolProp("Whether visa information should be included."),
					"patient_nationality":         strProp("Needed when visa assistance is requested."),
				}, "departure_city", "medical_destination_city", "medical_destination_country", "check_in_date", "check_out_date"),
				CostEstimate: 0.05,
			},
			handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				var req planner.TravelRequest
				if err := decodeArgs(args, &req); err != nil {
					return nil, err
				}
				return travel.Plan(ctx, req), nil
			},
		},
		{
			card: capability.ToolCard{
				Name:    ToolTravelLogistics,
				Version: "1.0.0",
				Description: "Arranges local logistics for the stay: airport pick-up, local transport, " +
					"additional services such as interpreters, dietary recommendations, SIM card " +
					"assistance and leisure activities. Call this after travel arrangements are confirmed.",
				InputSchema: objectSchema(map[string]interface{}{
					"medical_purpose":                  strProp("The confirmed treatment, for context."),
					"medical_destination_city":         strProp("The destination city."),
					"medical_destination_country":      strProp("The destination country."),
					"medical_stay_start_date":          strProp("Stay start date, YYYY-MM-DD."),
					"medical_stay_end_date":            strProp("Stay end date, YYYY-MM-DD."),
					"num_guests_total":                 intProp("Number of travellers."),
					"airport_pick_up_required":         boolProp("Whether airport pick-up is needed."),
					"local_transportation_needs":       strArrayProp("Transport needs, e.g. 'wheelchair-accessible taxi'."),
					"additional_local_services_needed": strArrayProp("Services such as 'interpreter'."),
					"dietary_needs":                    strArrayProp("Dietary needs, e.g. 'halal'."),
					"sim_card_assistance_needed":       boolProp("Whether SIM card guidance is needed."),
					"leisure_activities_interest":      strArrayProp("Leisure interests, e.g. 'city tours'."),
					"patient_accessibility_needs":      strProp("Free-text accessibility description."),
				}, "medical_destination_city", "medical_destination_country"),
				CostEstimate: 0.05,
			},
			handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				var req planner.LogisticsRequest
				if err := decodeArgs(args, &req); err != nil {
					return nil, err
				}
				return logistics.Plan(ctx, req), nil
			},
		},
		{
			card: capability.ToolCard{
				Name:    ToolUpdateSessionState,
				Version: "1.0.0",
				Description: "Saves a user's selected option into the session state. CRITICAL for " +
					"persisting choices made from summary_cards before moving to the next stage.",
				InputSchema: objectSchema(map[string]interface{}{
					"type": strProp("The kind of selection, e.g. 'medical_plan', 'flight', 'accommodation', 'local_logistics'."),
					"id":   strProp("The identifier of the selected option, e.g. 'MP_001'."),
				}, "type", "id"),
				SideEffects: []string{"session_state"},
			},
			handler: updateSessionState,
		},
		{
			card: capability.ToolCard{
				Name:    ToolCalculateBudget,
				Version: "1.0.0",
				Description: "Calculates the total estimated trip budget from every selection saved in " +
					"the session state. Call this when assembling the final plan report.",
				InputSchema: objectSchema(map[string]interface{}{}),
			},
			handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				state := StateFrom(ctx)
				if state == nil {
					return nil, fmt.Errorf("no session state available")
				}
				return budget.Calculate(*state), nil
			},
		},
	}

	regs := make([]capability.Registration, 0, len(cards))
	for _, c := range cards {
		signed, err := capability.Sign(c.card, secret)
		if err != nil {
			return nil, fmt.Errorf("signing tool card %s: %w", c.card.Name, err)
		}
		regs = append(regs, capability.Registration{Card: signed, Handler: c.handler})
	}

	required := cfg.Agent.RequiredTools
	if len(required) == 0 {
		required = []string{ToolMedicalPlanning, ToolTravelArrangement, ToolTravelLogistics, ToolUpdateSessionState, ToolCalculateBudget}
	}
	return capability.NewRegistry(regs, secret, required)
}

// updateSessionState records a selection in the slot it belongs to:
// existing plan parameter keys hold {"id": ...} records, profile keys hold
// the bare id, anything else lands as a new plan parameter.
func updateSessionState(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	state := StateFrom(ctx)
	if state == nil {
		return nil, fmt.Errorf("no session state available")
	}
	kind, _ := args["type"].(string)
	id, _ := args["id"].(string)

	if state.PlanParameters == nil {
		state.PlanParameters = map[string]interface{}{}
	}
	if _, ok := state.PlanParameters[kind]; ok {
		state.PlanParameters[kind] = map[string]interface{}{"id": id}
	} else if _, ok := state.UserProfile[kind]; ok {
		state.UserProfile[kind] = id
	} else {
		state.PlanParameters[kind] = id
	}
	return *state, nil
}
