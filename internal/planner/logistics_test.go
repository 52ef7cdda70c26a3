package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

type stubTransport struct {
	pickup    models.TransportOption
	pickupErr error
	local     []models.TransportOption
	localErr  error
}

func (s *stubTransport) AirportPickup(city string) (models.TransportOption, error) {
	return s.pickup, s.pickupErr
}

func (s *stubTransport) LocalTransport(city string) ([]models.TransportOption, error) {
	return s.local, s.localErr
}

func newLogisticsPlanner(llm *stubLLM, transport *stubTransport, web *stubWeb) *LogisticsPlanner {
	return NewLogisticsPlanner(testConfig(), llm, transport, web, nil, nil)
}

func TestLogisticsPlanConditionalSections(t *testing.T) {
	transport := &stubTransport{
		pickup: models.TransportOption{Provider: "MediRide", TransportType: "airport_pickup", PriceUSD: 30},
		local:  []models.TransportOption{{Provider: "AccessCab", TransportType: "local_transport"}},
	}
	llm := &stubLLM{err: errors.New("force fallback")}
	web := &stubWeb{results: []models.WebResult{
		{Title: "KL Interpreters", Link: "https://example.com/i", Snippet: "Medical interpreters. Call +60 312 345678 to book."},
	}}

	plan := newLogisticsPlanner(llm, transport, web).Plan(context.Background(), LogisticsRequest{
		MedicalDestinationCity:    "Kuala Lumpur",
		MedicalDestinationCountry: "Malaysia",
		AirportPickupRequired:     true,
		LocalTransportationNeeds:  []string{"wheelchair-accessible taxi"},
		AdditionalServicesNeeded:  []string{"interpreter"},
	})

	if plan.AirportPickup == nil || plan.AirportPickup.Provider != "MediRide" {
		t.Fatalf("expected airport pickup, got %+v", plan.AirportPickup)
	}
	if len(plan.LocalTransport) != 1 {
		t.Fatalf("expected local transport, got %+v", plan.LocalTransport)
	}
	if len(plan.LocalServices) != 1 || plan.LocalServices[0].ServiceType != "interpreter" {
		t.Fatalf("expected interpreter service group, got %+v", plan.LocalServices)
	}
	if got := plan.LocalServices[0].Suggestions[0].Contact; got != "+60 312 345678" {
		t.Fatalf("expected phone parsed from snippet, got %q", got)
	}
	if plan.SimCardInfo != nil {
		t.Fatal("sim card section should be skipped when not requested")
	}
	if plan.MedicalDestinationCity != "Kuala Lumpur" {
		t.Fatalf("destination should carry through, got %q", plan.MedicalDestinationCity)
	}
}

func TestLogisticsPlanSkipsUnrequestedSections(t *testing.T) {
	transport := &stubTransport{}
	llm := &stubLLM{err: errors.New("force fallback")}

	plan := newLogisticsPlanner(llm, transport, defaultWeb()).Plan(context.Background(), LogisticsRequest{
		MedicalDestinationCity:    "Istanbul",
		MedicalDestinationCountry: "Turkey",
	})

	if plan.AirportPickup != nil || plan.LocalTransport != nil || plan.LocalServices != nil ||
		plan.DietaryRecommendations != nil || plan.SimCardInfo != nil || plan.LeisureActivities != nil {
		t.Fatalf("no sections should be populated for an empty request: %+v", plan)
	}
	if plan.Error != "" {
		t.Fatalf("nothing requested, nothing should fail: %q", plan.Error)
	}
}

func TestLogisticsPlanPartialFailure(t *testing.T) {
	transport := &stubTransport{pickupErr: errors.New("no providers in city")}
	llm := &stubLLM{err: errors.New("force fallback")}
	web := &stubWeb{results: []models.WebResult{
		{Title: "Halal Dining", Link: "https://example.com/h", Snippet: "Top halal restaurants at 12 Jalan Ampang Rd district."},
	}}

	plan := newLogisticsPlanner(llm, transport, web).Plan(context.Background(), LogisticsRequest{
		MedicalDestinationCity:    "Kuala Lumpur",
		MedicalDestinationCountry: "Malaysia",
		AirportPickupRequired:     true,
		DietaryNeeds:              []string{"halal"},
	})

	if !strings.Contains(plan.Error, "no providers in city") {
		t.Fatalf("expected pickup failure in error, got %q", plan.Error)
	}
	if len(plan.DietaryRecommendations) != 1 {
		t.Fatalf("dietary section should survive pickup failure, got %+v", plan.DietaryRecommendations)
	}
	if got := plan.DietaryRecommendations[0].Suggestions[0].Location; !strings.Contains(got, "Jalan Ampang") {
		t.Fatalf("expected address parsed from snippet, got %q", got)
	}
	if !strings.Contains(plan.Message, "Some sub-tools returned errors") {
		t.Fatalf("partial result should flag errors in message, got %q", plan.Message)
	}
}

func TestLogisticsPlanSynthesis(t *testing.T) {
	transport := &stubTransport{pickup: models.TransportOption{Provider: "MediRide"}}
	llm := &stubLLM{response: "```json\n" + `{"medical_destination_city":"Kuala Lumpur","medical_destination_country":"Malaysia","airport_pickup":{"provider":"MediRide"},"local_transport":[],"local_services":[],"dietary_recommendations":[],"sim_card_info":null,"leisure_activities":[],"message":"Logistics arranged."}` + "\n```"}

	plan := newLogisticsPlanner(llm, transport, defaultWeb()).Plan(context.Background(), LogisticsRequest{
		MedicalDestinationCity:    "Kuala Lumpur",
		MedicalDestinationCountry: "Malaysia",
		AirportPickupRequired:     true,
	})

	if plan.Message != "Logistics arranged." {
		t.Fatalf("expected synthesized message, got %q", plan.Message)
	}
	if plan.AirportPickup == nil || plan.AirportPickup.Provider != "MediRide" {
		t.Fatalf("expected airport pickup in synthesized plan, got %+v", plan.AirportPickup)
	}
}

func TestParseSimCardInfoBuckets(t *testing.T) {
	results := []models.WebResult{
		{Title: "a", Snippet: "Buy a SIM at the airport arrivals hall.", Link: "l1"},
		{Title: "b", Snippet: "Visit any provider store downtown.", Link: "l2"},
		{Title: "c", Snippet: "Tourist SIMs cost about $10.", Link: "l3"},
	}
	info := parseSimCardInfo(results)
	if len(info.AirportPurchaseInfo) != 1 {
		t.Fatalf("airport bucket: %+v", info.AirportPurchaseInfo)
	}
	if len(info.StoreInfo) != 1 {
		t.Fatalf("store bucket: %+v", info.StoreInfo)
	}
	if len(info.GeneralInfo) != 1 {
		t.Fatalf("general bucket: %+v", info.GeneralInfo)
	}
}
