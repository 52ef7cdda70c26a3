package models

import "strings"

// Message types carried by the response envelope.
const (
	MessageTypeText         = "text"
	MessageTypeSummaryCards = "summary_cards"
	MessageTypeFinalPlan    = "final_plan"
	MessageTypeError        = "error"
)

// Conversation stages, in forward order. The stage machine never rolls back.
const (
	StageInitialWelcome             = "initial_welcome"
	StageMedicalPlanSelection       = "medical_plan_selection"
	StageTravelArrangementSelection = "travel_arrangement_selection"
	StageLocalLogisticsReview       = "local_logistics_review"
	StageFinalReportDisplay         = "final_report_display"
)

// Planning types attached to summary_cards envelopes.
const (
	PlanningTypeMedicalPlans       = "medical_plans"
	PlanningTypeTravelArrangements = "travel_arrangements"
	PlanningTypeTravelLogistics    = "travel_logistics"
)

// Envelope is the canonical normalized agent response:
// {message_type, content}, where content is always a JSON object.
type Envelope struct {
	MessageType string                 `json:"message_type"`
	Content     map[string]interface{} `json:"content"`
}

// TextEnvelope builds a plain text envelope wrapping a prompt string.
func TextEnvelope(prompt string) Envelope {
	return Envelope{
		MessageType: MessageTypeText,
		Content:     map[string]interface{}{"prompt": prompt},
	}
}

// Turn is one entry in a session's chat history. Agent turns carry the
// serialized normalized envelope, not raw model text.
type Turn struct {
	Role    string `json:"role"` // user, agent, system
	Content string `json:"content"`
}

const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// SessionState is the mutable per-session planning state.
type SessionState struct {
	CurrentStage   string                 `json:"current_stage"`
	PlanParameters map[string]interface{} `json:"plan_parameters"`
	UserProfile    map[string]interface{} `json:"user_profile,omitempty"`
}

// NewSessionState returns an initialized state at the welcome stage.
func NewSessionState() SessionState {
	return SessionState{
		CurrentStage:   StageInitialWelcome,
		PlanParameters: map[string]interface{}{},
	}
}

// DepartureCity returns the trimmed departure city recorded in plan
// parameters, or "" when absent.
func (s SessionState) DepartureCity() string {
	v, _ := s.PlanParameters["departure_city"].(string)
	return strings.TrimSpace(v)
}

// MedicalPlanOption is one synthesized medical plan card: denormalized
// display fields plus the full backing records matched from the raw
// sub-tool results.
type MedicalPlanOption struct {
	TreatmentName        string                 `json:"treatment_name"`
	EstimatedCostUSD     string                 `json:"estimated_cost_usd"`
	ClinicName           string                 `json:"clinic_name"`
	ClinicLocation       string                 `json:"clinic_location"`
	BriefDescription     string                 `json:"brief_description"`
	ImageURL             string                 `json:"image_url,omitempty"`
	FullHospitalDetails  map[string]interface{} `json:"full_hospital_details"`
	FullTreatmentDetails map[string]interface{} `json:"full_treatment_details"`
}

// FlightSegment is one leg of a flight option.
type FlightSegment struct {
	DepartureIATA string `json:"departure_iata"`
	ArrivalIATA   string `json:"arrival_iata"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	Duration      string `json:"duration"`
	CarrierCode   string `json:"carrier_code"`
	Number        string `json:"number"`
	NumberOfStops int    `json:"number_of_stops"`
}

// FlightOption summarizes one bookable flight offer.
type FlightOption struct {
	ID              string          `json:"id"`
	TotalCost       float64         `json:"total_cost"`
	Currency        string          `json:"currency"`
	Duration        string          `json:"duration"`
	Layovers        int             `json:"layovers"`
	Segments        []FlightSegment `json:"segments"`
	AirlineNames    string          `json:"airline_names"`
	SegmentsSummary string          `json:"segments_summary"`
	Notes           string          `json:"notes,omitempty"`
}

// AccommodationOption is one accessible accommodation suggestion.
type AccommodationOption struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Location              string   `json:"location"`
	City                  string   `json:"city"`
	Country               string   `json:"country"`
	MinCostPerNightUSD    float64  `json:"min_cost_per_night_usd"`
	MaxCostPerNightUSD    float64  `json:"max_cost_per_night_usd"`
	TotalCostEstimateUSD  float64  `json:"total_cost_estimate_usd"`
	AccessibilityFeatures []string `json:"accessibility_features"`
	Availability          string   `json:"availability,omitempty"`
	Notes                 string   `json:"notes,omitempty"`
	NearbyLandmarks       []string `json:"nearby_landmarks,omitempty"`
	ImageURL              string   `json:"image_url,omitempty"`
	StarRating            string   `json:"star_rating,omitempty"`
	AccommodationType     string   `json:"accommodation_type,omitempty"`
}

// WeatherInfo is the per-date forecast summary for the destination.
type WeatherInfo struct {
	City         string  `json:"city"`
	Country      string  `json:"country"`
	Date         string  `json:"date"`
	Condition    string  `json:"condition"`
	AvgTempC     float64 `json:"avg_temp_c"`
	MaxTempC     float64 `json:"max_temp_c"`
	MinTempC     float64 `json:"min_temp_c"`
	ChanceOfRain int     `json:"chance_of_rain"`
}

// VisaInfo captures the matched visa rule for a nationality/destination pair.
type VisaInfo struct {
	VisaRequired       bool     `json:"visa_required"`
	VisaType           string   `json:"visa_type"`
	StayDurationNotes  string   `json:"stay_duration_notes"`
	ProcessingTimeDays string   `json:"processing_time_days"`
	RequiredDocuments  []string `json:"required_documents"`
	Notes              string   `json:"notes,omitempty"`
}

// TransportOption is one local medical transport suggestion.
type TransportOption struct {
	Provider      string  `json:"provider"`
	TransportType string  `json:"transport_type"`
	Description   string  `json:"description"`
	PriceUSD      float64 `json:"price_usd"`
	Accessibility string  `json:"accessibility,omitempty"`
	BookingNotes  string  `json:"booking_notes,omitempty"`
}

// WebResult is a single organic web search hit.
type WebResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// AirportInfo maps a city to one of its IATA codes.
type AirportInfo struct {
	CityName    string `json:"city_name"`
	AirportName string `json:"airport_name"`
	IATACode    string `json:"iata_code"`
	CountryCode string `json:"country_code"`
}

// TravelArrangementPlan is the single synthesized travel plan emitted by the
// travel orchestrator.
type TravelArrangementPlan struct {
	DepartureCity              string                `json:"departure_city"`
	MedicalDestinationCity     string                `json:"medical_destination_city"`
	MedicalDestinationCountry  string                `json:"medical_destination_country"`
	FlightSuggestions          []FlightOption        `json:"flight_suggestions"`
	AccommodationSuggestions   []AccommodationOption `json:"accommodation_suggestions"`
	WeatherInfo                *WeatherInfo          `json:"weather_info"`
	VisaAssistanceFlag         bool                  `json:"visa_assistance_flag"`
	VisaInformation            *VisaInfo             `json:"visa_information"`
	Message                    string                `json:"message"`
	Error                      string                `json:"error,omitempty"`
}

// ServiceSuggestion is a named local service or venue parsed from web results.
type ServiceSuggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
	Contact     string `json:"contact,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ServiceGroup groups suggestions for one requested service or dietary need.
type ServiceGroup struct {
	ServiceType string              `json:"service_type"`
	Suggestions []ServiceSuggestion `json:"suggestions"`
}

// SimCardInfo aggregates SIM purchase guidance by venue kind.
type SimCardInfo struct {
	AirportPurchaseInfo []ServiceSuggestion `json:"airport_purchase_info,omitempty"`
	StoreInfo           []ServiceSuggestion `json:"store_info,omitempty"`
	GeneralInfo         []ServiceSuggestion `json:"general_info"`
}

// LocalLogisticsPlan is the single synthesized logistics plan emitted by the
// logistics orchestrator.
type LocalLogisticsPlan struct {
	MedicalDestinationCity    string            `json:"medical_destination_city"`
	MedicalDestinationCountry string            `json:"medical_destination_country"`
	AirportPickup             *TransportOption  `json:"airport_pickup"`
	LocalTransport            []TransportOption `json:"local_transport"`
	LocalServices             []ServiceGroup    `json:"local_services"`
	DietaryRecommendations    []ServiceGroup    `json:"dietary_recommendations"`
	SimCardInfo               *SimCardInfo      `json:"sim_card_info"`
	LeisureActivities         []ServiceGroup    `json:"leisure_activities"`
	Message                   string            `json:"message"`
	Error                     string            `json:"error,omitempty"`
}

// BudgetBreakdown itemizes the aggregated trip budget.
type BudgetBreakdown struct {
	MedicalCost           float64 `json:"medical_cost"`
	FlightCost            float64 `json:"flight_cost"`
	AccommodationCost     float64 `json:"accommodation_cost"`
	AirportPickupCost     float64 `json:"airport_pickup_cost"`
	LocalServicesCost     float64 `json:"local_services_cost"`
	LeisureActivitiesCost float64 `json:"leisure_activities_cost"`
}

// BudgetReport is the aggregator's always-well-formed answer.
type BudgetReport struct {
	TotalEstimatedBudgetUSD float64         `json:"total_estimated_budget_usd"`
	Breakdown               BudgetBreakdown `json:"breakdown"`
	Error                   string          `json:"error,omitempty"`
}

// Treatment is a reference-store treatment record.
type Treatment struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Category         string                 `json:"category"`
	Description      string                 `json:"description"`
	TypicalStayDays  int                    `json:"typical_stay_days"`
	CostUSDMin       float64                `json:"cost_usd_min"`
	CostUSDMax       float64                `json:"cost_usd_max"`
	Details          map[string]interface{} `json:"details,omitempty"`
}

// Hospital is a reference-store hospital record.
type Hospital struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	City        string                 `json:"city"`
	Country     string                 `json:"country"`
	Specialties []string               `json:"specialties"`
	Rating      float64                `json:"rating"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// CostEstimate is the cost estimator's typed answer for one procedure.
type CostEstimate struct {
	ProcedureName string  `json:"procedure_name"`
	Location      string  `json:"location"`
	MinUSD        float64 `json:"min_usd"`
	MaxUSD        float64 `json:"max_usd"`
	Currency      string  `json:"currency"`
	Notes         string  `json:"notes,omitempty"`
}
