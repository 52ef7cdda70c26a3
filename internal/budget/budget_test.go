package budget

import (
	"strings"
	"testing"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

func TestCalculateFullPlan(t *testing.T) {
	state := models.SessionState{
		CurrentStage: models.StageFinalReportDisplay,
		PlanParameters: map[string]interface{}{
			"check_in_date":  "2025-08-01",
			"check_out_date": "2025-08-06",
			"medical_plan": map[string]interface{}{
				"estimated_cost_usd": 15000.0,
			},
			"flight": map[string]interface{}{
				"price": map[string]interface{}{"amount": 1200.0},
			},
			"accommodation": map[string]interface{}{
				"price": map[string]interface{}{"amount": 150.0},
			},
			"local_logistics": map[string]interface{}{
				"airport_pickup": map[string]interface{}{
					"price": map[string]interface{}{"amount": 30.0},
				},
			},
		},
	}

	report := Calculate(state)
	if report.Error != "" {
		t.Fatalf("unexpected error: %s", report.Error)
	}
	if report.TotalEstimatedBudgetUSD != 16980 {
		t.Fatalf("total = %v, want 16980", report.TotalEstimatedBudgetUSD)
	}
	if report.Breakdown.AccommodationCost != 750 {
		t.Fatalf("accommodation = %v, want 750", report.Breakdown.AccommodationCost)
	}
}

func TestCalculateStringCosts(t *testing.T) {
	state := models.SessionState{
		PlanParameters: map[string]interface{}{
			"medical_plan": map[string]interface{}{
				"estimated_cost_usd": "4200",
			},
		},
	}
	report := Calculate(state)
	if report.TotalEstimatedBudgetUSD != 4200 {
		t.Fatalf("total = %v, want 4200", report.TotalEstimatedBudgetUSD)
	}
}

func TestCalculateSumsServicesAndLeisure(t *testing.T) {
	state := models.SessionState{
		PlanParameters: map[string]interface{}{
			"local_logistics": map[string]interface{}{
				"local_services": []interface{}{
					map[string]interface{}{"price": map[string]interface{}{"amount": 40.0}},
					map[string]interface{}{"price": map[string]interface{}{"amount": 25.0}},
				},
				"leisure_activities": []interface{}{
					map[string]interface{}{"price": map[string]interface{}{"amount": 60.0}},
				},
			},
		},
	}
	report := Calculate(state)
	if report.Breakdown.LocalServicesCost != 65 {
		t.Fatalf("services = %v, want 65", report.Breakdown.LocalServicesCost)
	}
	if report.Breakdown.LeisureActivitiesCost != 60 {
		t.Fatalf("leisure = %v, want 60", report.Breakdown.LeisureActivitiesCost)
	}
	if report.TotalEstimatedBudgetUSD != 125 {
		t.Fatalf("total = %v, want 125", report.TotalEstimatedBudgetUSD)
	}
}

func TestCalculateInvalidDates(t *testing.T) {
	state := models.SessionState{
		PlanParameters: map[string]interface{}{
			"check_in_date":  "not-a-date",
			"check_out_date": "2025-08-06",
			"medical_plan": map[string]interface{}{
				"estimated_cost_usd": 5000.0,
			},
		},
	}
	report := Calculate(state)
	if report.TotalEstimatedBudgetUSD != 0 {
		t.Fatalf("total = %v, want 0 on error", report.TotalEstimatedBudgetUSD)
	}
	if !strings.Contains(report.Error, "check_in_date") {
		t.Fatalf("error = %q, want mention of check_in_date", report.Error)
	}
}

func TestCalculateEmptyState(t *testing.T) {
	report := Calculate(models.NewSessionState())
	if report.Error != "" {
		t.Fatalf("unexpected error: %s", report.Error)
	}
	if report.TotalEstimatedBudgetUSD != 0 {
		t.Fatalf("total = %v, want 0", report.TotalEstimatedBudgetUSD)
	}
}
