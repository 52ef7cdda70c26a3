package session

import (
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/utils"
)

// ApplyStageTransition advances the stage machine from the latest
// normalized envelope and records the plan data it carries. At most one
// transition happens per call, derived solely from the envelope; the
// stage never rolls back.
//
// Note: a summary_cards envelope moves the stage regardless of whether
// the nominally prior stage was ever reached. That mirrors how the
// conversation actually behaves (the agent decides what to plan next),
// but it means the machine trusts the agent's ordering.
func ApplyStageTransition(state *models.SessionState, env models.Envelope) bool {
	if state.PlanParameters == nil {
		state.PlanParameters = map[string]interface{}{}
	}

	switch env.MessageType {
	case models.MessageTypeSummaryCards:
		planningType := utils.Str(env.Content["planning_type"])
		payload, _ := env.Content["payload"].(map[string]interface{})
		switch planningType {
		case models.PlanningTypeMedicalPlans:
			var output interface{}
			if payload != nil {
				output = payload["output"]
			}
			state.PlanParameters["medical_plan_options"] = output
			state.CurrentStage = models.StageMedicalPlanSelection
			return true
		case models.PlanningTypeTravelArrangements:
			state.PlanParameters["travel_arrangements_plan"] = payload
			state.CurrentStage = models.StageTravelArrangementSelection
			return true
		case models.PlanningTypeTravelLogistics:
			state.PlanParameters["local_logistics_plan"] = payload
			state.CurrentStage = models.StageLocalLogisticsReview
			return true
		}
		return false
	case models.MessageTypeFinalPlan:
		state.PlanParameters["finalized_plan"] = env.Content
		state.CurrentStage = models.StageFinalReportDisplay
		return true
	default:
		return false
	}
}
