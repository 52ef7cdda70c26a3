// Package budget aggregates the total estimated trip cost from the
// selections recorded in the session's plan parameters.
package budget

import (
	"fmt"
	"time"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/utils"
)

// Calculate sums the cost of every selection in the session state:
// medical plan, flight, accommodation across the stay, airport pickup,
// local services and leisure activities. It never fails: missing
// selections count as zero, and invalid data yields a zero total with
// the error recorded on the report.
func Calculate(state models.SessionState) models.BudgetReport {
	params := state.PlanParameters
	if params == nil {
		params = map[string]interface{}{}
	}

	medicalPlan := section(params, "medical_plan")
	flightPlan := section(params, "flight")
	accommodationPlan := section(params, "accommodation")
	logisticsPlan := section(params, "local_logistics")

	medicalCost := utils.Num(medicalPlan["estimated_cost_usd"])
	flightCost := priceAmount(flightPlan)
	perNight := priceAmount(accommodationPlan)
	pickupCost := priceAmount(section(logisticsPlan, "airport_pickup"))
	servicesCost := sumPrices(logisticsPlan["local_services"])
	leisureCost := sumPrices(logisticsPlan["leisure_activities"])

	nights, err := stayNights(params)
	if err != nil {
		return models.BudgetReport{
			TotalEstimatedBudgetUSD: 0,
			Error:                   fmt.Sprintf("Failed to calculate budget due to missing or invalid data: %v", err),
		}
	}

	accommodationCost := perNight * float64(nights)
	breakdown := models.BudgetBreakdown{
		MedicalCost:           medicalCost,
		FlightCost:            flightCost,
		AccommodationCost:     accommodationCost,
		AirportPickupCost:     pickupCost,
		LocalServicesCost:     servicesCost,
		LeisureActivitiesCost: leisureCost,
	}

	return models.BudgetReport{
		TotalEstimatedBudgetUSD: medicalCost + flightCost + accommodationCost + pickupCost + servicesCost + leisureCost,
		Breakdown:               breakdown,
	}
}

func section(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	if s, ok := m[key].(map[string]interface{}); ok {
		return s
	}
	return map[string]interface{}{}
}

func priceAmount(m map[string]interface{}) float64 {
	return utils.Num(section(m, "price")["amount"])
}

func sumPrices(v interface{}) float64 {
	items, ok := v.([]interface{})
	if !ok {
		return 0
	}
	var total float64
	for _, it := range items {
		if m, ok := it.(map[string]interface{}); ok {
			total += priceAmount(m)
		}
	}
	return total
}

// stayNights derives the accommodation nights from the check-in and
// check-out dates. Both absent means zero nights; a malformed or
// inverted range is an error.
func stayNights(params map[string]interface{}) (int, error) {
	checkIn, _ := params["check_in_date"].(string)
	checkOut, _ := params["check_out_date"].(string)
	if checkIn == "" || checkOut == "" {
		return 0, nil
	}
	start, err := time.Parse("2006-01-02", checkIn)
	if err != nil {
		return 0, fmt.Errorf("invalid check_in_date %q", checkIn)
	}
	end, err := time.Parse("2006-01-02", checkOut)
	if err != nil {
		return 0, fmt.Errorf("invalid check_out_date %q", checkOut)
	}
	nights := int(end.Sub(start).Hours() / 24)
	if nights < 0 {
		return 0, fmt.Errorf("check_out_date before check_in_date")
	}
	return nights, nil
}
