package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/telemetry"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/provider"
)

// TravelRequest is the structured input for travel arrangement synthesis.
type TravelRequest struct {
	DepartureCity             string   `json:"departure_city"`
	MedicalDestinationCity    string   `json:"medical_destination_city"`
	MedicalDestinationCountry string   `json:"medical_destination_country"`
	CheckInDate               string   `json:"check_in_date"`
	CheckOutDate              string   `json:"check_out_date"`
	EstimatedReturnDate       string   `json:"estimated_return_date,omitempty"`
	NumGuests                 int      `json:"num_guests_medical_plan"`
	FlightPreferences         []string `json:"flight_preferences,omitempty"`
	AccommodationRequirements []string `json:"accommodation_requirements,omitempty"`
	AccessibilityNeeds        []string `json:"accessibility_needs,omitempty"`
	VisaAssistanceNeeded      bool     `json:"visa_assistance_needed"`
	PatientNationality        string   `json:"patient_nationality,omitempty"`
}

// TravelPlanner resolves airports, gathers flights, accommodation, weather and
// visa data concurrently, and synthesizes one TravelArrangementPlan.
type TravelPlanner struct {
	llm      provider.LLMProvider
	model    string
	airports AirportResolver
	flights  FlightSearcher
	stays    AccommodationFinder
	weather  WeatherSource
	visas    VisaChecker
	web      WebSearcher
	tracker  *telemetry.CostTracker
	logger   *log.Logger
}

func NewTravelPlanner(cfg *config.Config, llm provider.LLMProvider, airports AirportResolver, flights FlightSearcher, stays AccommodationFinder, weather WeatherSource, visas VisaChecker, web WebSearcher, tracker *telemetry.CostTracker, logger *log.Logger) *TravelPlanner {
	if logger == nil {
		logger = log.Default()
	}
	return &TravelPlanner{
		llm:      llm,
		model:    synthesisModel(cfg),
		airports: airports,
		flights:  flights,
		stays:    stays,
		weather:  weather,
		visas:    visas,
		web:      web,
		tracker:  tracker,
		logger:   logger,
	}
}

// Plan builds one travel arrangement. Sub-tool failures degrade the plan
// rather than abort it; only a missing destination city refuses outright.
func (p *TravelPlanner) Plan(ctx context.Context, req TravelRequest) models.TravelArrangementPlan {
	ctx, span := tracer.Start(ctx, "planner.travel",
		trace.WithAttributes(
			attribute.String("travel.origin", req.DepartureCity),
			attribute.String("travel.destination", req.MedicalDestinationCity),
		))
	defer span.End()

	dest := strings.TrimSpace(req.MedicalDestinationCity)
	if dest == "" || strings.EqualFold(dest, "N/A") {
		err := fmt.Errorf("travel planning requires a specific destination city")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.TravelArrangementPlan{
			DepartureCity:          req.DepartureCity,
			MedicalDestinationCity: req.MedicalDestinationCity,
			Message:                "Unable to continue planning the trip. Please provide a specific destination city.",
			Error:                  err.Error(),
		}
	}

	p.logger.Printf("travel planning: %s -> %s (%s to %s)", req.DepartureCity, dest, req.CheckInDate, req.CheckOutDate)

	var errs []string
	nights := calculateNights(req.CheckInDate, req.CheckOutDate)

	// Resolve both airports first; the flight search depends on them.
	var (
		originAirports []models.AirportInfo
		originErr      error
		destAirports   []models.AirportInfo
		destErr        error
	)
	var iataWG sync.WaitGroup
	iataWG.Add(2)
	go func() {
		defer iataWG.Done()
		originAirports, originErr = p.airports.Lookup(ctx, req.DepartureCity)
	}()
	go func() {
		defer iataWG.Done()
		destAirports, destErr = p.airports.Lookup(ctx, dest)
	}()
	iataWG.Wait()
	if originErr != nil {
		errs = append(errs, fmt.Sprintf("Origin airport lookup failed: %v", originErr))
	}
	if destErr != nil {
		errs = append(errs, fmt.Sprintf("Destination airport lookup failed: %v", destErr))
	}

	var (
		flightOptions []models.FlightOption
		stays         []models.AccommodationOption
		forecast      models.WeatherInfo
		forecastErr   error
		visa          models.VisaInfo
		visaErr       error
	)

	var wg sync.WaitGroup
	errCh := make(chan string, 4)
	if len(originAirports) > 0 && len(destAirports) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			flightOptions, err = p.flights.Search(ctx, originAirports[0].IATACode, destAirports[0].IATACode, req.CheckInDate, req.NumGuests)
			if err != nil {
				errCh <- fmt.Sprintf("Flight search failed: %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		stays, err = p.stays.Find(dest, nights, req.AccessibilityNeeds, 5)
		if err != nil {
			errCh <- fmt.Sprintf("Accommodation search failed: %v", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		forecast, forecastErr = p.weather.Forecast(ctx, dest, req.CheckInDate)
		if forecastErr != nil {
			errCh <- fmt.Sprintf("Weather lookup failed: %v", forecastErr)
		}
	}()
	if req.VisaAssistanceNeeded && req.PatientNationality != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			visa, visaErr = p.visas.Check(req.PatientNationality, req.MedicalDestinationCountry)
			if visaErr != nil {
				errCh <- fmt.Sprintf("Visa check failed: %v", visaErr)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for msg := range errCh {
		errs = append(errs, msg)
	}

	// When the forecast API has nothing, fall back to web research so the
	// synthesis step still sees something about the weather.
	var weatherWeb []models.WebResult
	if forecastErr != nil {
		q := fmt.Sprintf("long-term weather forecast for %s around %s", dest, req.CheckInDate)
		if results, err := p.web.Search(ctx, q, 3); err == nil {
			weatherWeb = results
		}
	}

	gathered := map[string]interface{}{
		"iata_codes_origin":      subResult(originAirports, originErr),
		"iata_codes_destination": subResult(destAirports, destErr),
		"flight_search_results":  map[string]interface{}{"data": flightOptions},
		"accommodation_results":  map[string]interface{}{"data": stays},
		"weather_data_results":   subResult(forecast, forecastErr),
	}
	if len(weatherWeb) > 0 {
		gathered["web_search_weather_results"] = map[string]interface{}{"data": weatherWeb}
	}
	if req.VisaAssistanceNeeded && visaErr == nil {
		gathered["visa_information"] = toMap(visa)
	}

	plan, synthErr := p.synthesize(ctx, req, gathered)
	if synthErr != nil {
		p.logger.Printf("travel synthesis failed: %v", synthErr)
		span.RecordError(synthErr)
		span.SetStatus(codes.Error, synthErr.Error())
		// Degrade to the raw gathered data rather than returning nothing.
		plan = models.TravelArrangementPlan{
			FlightSuggestions:        flightOptions,
			AccommodationSuggestions: stays,
		}
		if forecastErr == nil {
			plan.WeatherInfo = &forecast
		}
	}

	p.fillMissingFields(&plan, req, forecast, forecastErr, visa, visaErr)
	if len(errs) > 0 {
		if plan.Error != "" {
			errs = append(errs, plan.Error)
		}
		plan.Error = strings.Join(errs, "; ")
	}
	return plan
}

func (p *TravelPlanner) synthesize(ctx context.Context, req TravelRequest, gathered map[string]interface{}) (models.TravelArrangementPlan, error) {
	prompt := fmt.Sprintf(`You are a medical travel arrangement expert. Synthesize the gathered data
below into one travel arrangement plan.

REQUEST:
- Departure city: %s
- Destination: %s, %s
- Check-in: %s  Check-out: %s  Return: %s
- Guests: %d
- Flight preferences: %s
- Accommodation requirements: %s
- Accessibility needs: %s
- Visa assistance needed: %t

GATHERED DATA (JSON):
%s

Respond with ONLY one JSON object with these keys: "departure_city",
"medical_destination_city", "medical_destination_country",
"flight_suggestions" (array of flight objects from the gathered data,
best options first), "accommodation_suggestions" (array),
"weather_info" (object or null), "visa_assistance_flag" (boolean),
"visa_information" (object or null), "message" (one sentence for the
patient), "error" (string or null). Keep gathered field values verbatim.
No prose, no markdown fences.`,
		req.DepartureCity, req.MedicalDestinationCity, req.MedicalDestinationCountry,
		req.CheckInDate, req.CheckOutDate, req.EstimatedReturnDate,
		req.NumGuests,
		strings.Join(req.FlightPreferences, ", "),
		strings.Join(req.AccommodationRequirements, ", "),
		strings.Join(req.AccessibilityNeeds, ", "),
		req.VisaAssistanceNeeded,
		mustJSON(gathered))

	out, err := generate(ctx, p.llm, p.tracker, p.model, prompt)
	if err != nil {
		return models.TravelArrangementPlan{}, err
	}
	cleaned := extractFirstJSON(stripFences(out))
	var plan models.TravelArrangementPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return models.TravelArrangementPlan{}, fmt.Errorf("parsing synthesized plan: %w", err)
	}
	return plan, nil
}

// fillMissingFields backfills schema defaults the model may have omitted.
func (p *TravelPlanner) fillMissingFields(plan *models.TravelArrangementPlan, req TravelRequest, forecast models.WeatherInfo, forecastErr error, visa models.VisaInfo, visaErr error) {
	if plan.DepartureCity == "" {
		plan.DepartureCity = req.DepartureCity
	}
	if plan.MedicalDestinationCity == "" {
		plan.MedicalDestinationCity = req.MedicalDestinationCity
	}
	if plan.MedicalDestinationCountry == "" {
		plan.MedicalDestinationCountry = req.MedicalDestinationCountry
	}
	if plan.FlightSuggestions == nil {
		plan.FlightSuggestions = []models.FlightOption{}
	}
	if plan.AccommodationSuggestions == nil {
		plan.AccommodationSuggestions = []models.AccommodationOption{}
	}
	if plan.WeatherInfo == nil && forecastErr == nil {
		w := forecast
		plan.WeatherInfo = &w
	}
	plan.VisaAssistanceFlag = req.VisaAssistanceNeeded
	if plan.VisaInformation == nil && req.VisaAssistanceNeeded && visaErr == nil {
		v := visa
		plan.VisaInformation = &v
	}
	if plan.Message == "" {
		plan.Message = "Your travel plan has been successfully arranged."
	}
}
