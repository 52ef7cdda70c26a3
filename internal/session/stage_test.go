package session

import (
	"reflect"
	"testing"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

func TestStageMedicalPlans(t *testing.T) {
	state := models.NewSessionState()
	options := []interface{}{
		map[string]interface{}{"treatment_name": "Dental Implants"},
	}
	env := models.Envelope{
		MessageType: models.MessageTypeSummaryCards,
		Content: map[string]interface{}{
			"planning_type": "medical_plans",
			"payload":       map[string]interface{}{"output": options},
		},
	}

	if !ApplyStageTransition(&state, env) {
		t.Fatal("expected a stage transition")
	}
	if state.CurrentStage != models.StageMedicalPlanSelection {
		t.Fatalf("stage = %s, want medical_plan_selection", state.CurrentStage)
	}
	got := state.PlanParameters["medical_plan_options"]
	if !reflect.DeepEqual(got, options) {
		t.Fatalf("medical_plan_options = %#v, want payload output", got)
	}
}

func TestStageTravelArrangements(t *testing.T) {
	state := models.NewSessionState()
	payload := map[string]interface{}{"departure_city": "Beijing"}
	env := models.Envelope{
		MessageType: models.MessageTypeSummaryCards,
		Content: map[string]interface{}{
			"planning_type": "travel_arrangements",
			"payload":       payload,
		},
	}

	if !ApplyStageTransition(&state, env) {
		t.Fatal("expected a stage transition")
	}
	if state.CurrentStage != models.StageTravelArrangementSelection {
		t.Fatalf("stage = %s", state.CurrentStage)
	}
	if !reflect.DeepEqual(state.PlanParameters["travel_arrangements_plan"], payload) {
		t.Fatal("payload not stored")
	}
}

func TestStageTravelLogistics(t *testing.T) {
	state := models.NewSessionState()
	env := models.Envelope{
		MessageType: models.MessageTypeSummaryCards,
		Content: map[string]interface{}{
			"planning_type": "travel_logistics",
			"payload":       map[string]interface{}{"airport_pickup": nil},
		},
	}

	if !ApplyStageTransition(&state, env) {
		t.Fatal("expected a stage transition")
	}
	if state.CurrentStage != models.StageLocalLogisticsReview {
		t.Fatalf("stage = %s", state.CurrentStage)
	}
}

func TestStageFinalPlan(t *testing.T) {
	state := models.NewSessionState()
	env := models.Envelope{
		MessageType: models.MessageTypeFinalPlan,
		Content:     map[string]interface{}{"total_estimated_budget_usd": 16980.0},
	}

	if !ApplyStageTransition(&state, env) {
		t.Fatal("expected a stage transition")
	}
	if state.CurrentStage != models.StageFinalReportDisplay {
		t.Fatalf("stage = %s", state.CurrentStage)
	}
	if !reflect.DeepEqual(state.PlanParameters["finalized_plan"], env.Content) {
		t.Fatal("finalized_plan not stored")
	}
}

func TestStageUnchangedForText(t *testing.T) {
	state := models.NewSessionState()
	state.CurrentStage = models.StageTravelArrangementSelection

	env := models.TextEnvelope("Which city are you departing from?")
	if ApplyStageTransition(&state, env) {
		t.Fatal("text envelope must not transition")
	}
	if state.CurrentStage != models.StageTravelArrangementSelection {
		t.Fatalf("stage = %s, want unchanged", state.CurrentStage)
	}
}

func TestStageUnknownPlanningType(t *testing.T) {
	state := models.NewSessionState()
	env := models.Envelope{
		MessageType: models.MessageTypeSummaryCards,
		Content:     map[string]interface{}{"planning_type": "unknown"},
	}
	if ApplyStageTransition(&state, env) {
		t.Fatal("unknown planning_type must not transition")
	}
	if state.CurrentStage != models.StageInitialWelcome {
		t.Fatalf("stage = %s", state.CurrentStage)
	}
}
