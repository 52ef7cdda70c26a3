package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
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

// LogisticsRequest is the structured input for local logistics synthesis.
type LogisticsRequest struct {
	MedicalPurpose            string   `json:"medical_purpose,omitempty"`
	MedicalDestinationCity    string   `json:"medical_destination_city"`
	MedicalDestinationCountry string   `json:"medical_destination_country"`
	MedicalStayStartDate      string   `json:"medical_stay_start_date,omitempty"`
	MedicalStayEndDate        string   `json:"medical_stay_end_date,omitempty"`
	NumGuestsTotal            int      `json:"num_guests_total,omitempty"`
	AirportPickupRequired     bool     `json:"airport_pick_up_required"`
	LocalTransportationNeeds  []string `json:"local_transportation_needs,omitempty"`
	AdditionalServicesNeeded  []string `json:"additional_local_services_needed,omitempty"`
	DietaryNeeds              []string `json:"dietary_needs,omitempty"`
	SimCardAssistanceNeeded   bool     `json:"sim_card_assistance_needed"`
	LeisureInterests          []string `json:"leisure_activities_interest,omitempty"`
	PatientAccessibilityNeeds string   `json:"patient_accessibility_needs,omitempty"`
}

// LogisticsPlanner assembles local logistics: transport from the reference
// catalog, everything else researched on the web, then one synthesis pass.
type LogisticsPlanner struct {
	llm       provider.LLMProvider
	model     string
	transport TransportCatalog
	web       WebSearcher
	tracker   *telemetry.CostTracker
	logger    *log.Logger
}

func NewLogisticsPlanner(cfg *config.Config, llm provider.LLMProvider, transport TransportCatalog, web WebSearcher, tracker *telemetry.CostTracker, logger *log.Logger) *LogisticsPlanner {
	if logger == nil {
		logger = log.Default()
	}
	return &LogisticsPlanner{
		llm:       llm,
		model:     synthesisModel(cfg),
		transport: transport,
		web:       web,
		tracker:   tracker,
		logger:    logger,
	}
}

var (
	phoneRe   = regexp.MustCompile(`\+?\d{1,3}[\s-]?\d{3}[\s-]?\d{4,}`)
	addressRe = regexp.MustCompile(`(?i)\d+\s+[\w\s,.-]+(Rd|St|Ave|Blvd|Street|Road)`)
)

// Plan builds one local logistics plan. Every section is conditional on the
// request; sub-tool failures are folded into the error string.
func (p *LogisticsPlanner) Plan(ctx context.Context, req LogisticsRequest) models.LocalLogisticsPlan {
	ctx, span := tracer.Start(ctx, "planner.logistics",
		trace.WithAttributes(attribute.String("logistics.destination", req.MedicalDestinationCity)))
	defer span.End()

	p.logger.Printf("logistics planning for %s, %s", req.MedicalDestinationCity, req.MedicalDestinationCountry)

	var errs []string
	gathered := map[string]interface{}{}

	var airportPickup *models.TransportOption
	if req.AirportPickupRequired {
		opt, err := p.transport.AirportPickup(req.MedicalDestinationCity)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Airport pick-up error: %v", err))
		} else {
			airportPickup = &opt
			gathered["airport_pick_up_info"] = toMap(opt)
		}
	}

	var localTransport []models.TransportOption
	if len(req.LocalTransportationNeeds) > 0 {
		opts, err := p.transport.LocalTransport(req.MedicalDestinationCity)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Local transport error: %v", err))
		} else {
			localTransport = opts
			gathered["local_transport_info"] = opts
		}
	}

	services, serviceErrs := p.researchGroups(ctx, req.AdditionalServicesNeeded,
		func(s string) string {
			return fmt.Sprintf("%s services in %s, %s", s, req.MedicalDestinationCity, req.MedicalDestinationCountry)
		}, "service")
	errs = append(errs, serviceErrs...)
	if len(services) > 0 {
		gathered["additional_local_services_info"] = services
	}

	dietary, dietErrs := p.researchGroups(ctx, req.DietaryNeeds,
		func(d string) string {
			return fmt.Sprintf("%s restaurants in %s, %s", d, req.MedicalDestinationCity, req.MedicalDestinationCountry)
		}, "restaurant")
	errs = append(errs, dietErrs...)
	if len(dietary) > 0 {
		gathered["dietary_recommendations_info"] = dietary
	}

	var simInfo *models.SimCardInfo
	if req.SimCardAssistanceNeeded {
		q := fmt.Sprintf("buy local SIM card %s airport OR %s", req.MedicalDestinationCountry, req.MedicalDestinationCity)
		results, err := p.web.Search(ctx, q, 5)
		if err != nil {
			errs = append(errs, fmt.Sprintf("SIM card error: %v", err))
		} else {
			info := parseSimCardInfo(results)
			simInfo = &info
			gathered["sim_card_assistance_info"] = toMap(info)
		}
	}

	leisure, leisureErrs := p.researchGroups(ctx, req.LeisureInterests,
		func(a string) string {
			return fmt.Sprintf("%s in %s, %s", a, req.MedicalDestinationCity, req.MedicalDestinationCountry)
		}, "leisure")
	errs = append(errs, leisureErrs...)
	if len(leisure) > 0 {
		gathered["leisure_activity_suggestions_info"] = leisure
	}

	plan, synthErr := p.synthesize(ctx, req, gathered, errs)
	if synthErr != nil {
		p.logger.Printf("logistics synthesis failed: %v", synthErr)
		span.RecordError(synthErr)
		span.SetStatus(codes.Error, synthErr.Error())
		// Degrade to the gathered structured data directly.
		plan = models.LocalLogisticsPlan{
			AirportPickup:          airportPickup,
			LocalTransport:         localTransport,
			LocalServices:          services,
			DietaryRecommendations: dietary,
			SimCardInfo:            simInfo,
			LeisureActivities:      leisure,
		}
	}

	if plan.MedicalDestinationCity == "" {
		plan.MedicalDestinationCity = req.MedicalDestinationCity
	}
	if plan.MedicalDestinationCountry == "" {
		plan.MedicalDestinationCountry = req.MedicalDestinationCountry
	}
	if plan.Message == "" {
		plan.Message = "Local logistics planning completed successfully."
	}
	if len(errs) > 0 {
		plan.Message += " (Some sub-tools returned errors, see error field.)"
		plan.Error = strings.Join(errs, "; ")
	}
	return plan
}

// researchGroups runs one web search per requested item concurrently and
// parses the top snippets into suggestion groups.
func (p *LogisticsPlanner) researchGroups(ctx context.Context, items []string, query func(string) string, category string) ([]models.ServiceGroup, []string) {
	if len(items) == 0 {
		return nil, nil
	}
	groups := make([]models.ServiceGroup, len(items))
	failures := make([]string, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item string) {
			defer wg.Done()
			results, err := p.web.Search(ctx, query(item), 3)
			if err != nil {
				failures[i] = fmt.Sprintf("Web research (%s) error: %v", item, err)
				groups[i] = models.ServiceGroup{ServiceType: item, Suggestions: []models.ServiceSuggestion{}}
				return
			}
			groups[i] = models.ServiceGroup{ServiceType: item, Suggestions: parseWebSnippets(results, category)}
		}(i, item)
	}
	wg.Wait()

	var errs []string
	for _, f := range failures {
		if f != "" {
			errs = append(errs, f)
		}
	}
	return groups, errs
}

// parseWebSnippets turns raw web hits into suggestions, pulling contact
// numbers for services and street addresses for restaurants out of snippets.
func parseWebSnippets(results []models.WebResult, category string) []models.ServiceSuggestion {
	suggestions := make([]models.ServiceSuggestion, 0, len(results))
	for _, r := range results {
		s := models.ServiceSuggestion{
			Name:        r.Title,
			Description: r.Snippet,
			SourceURL:   r.Link,
		}
		switch category {
		case "service", "leisure":
			if m := phoneRe.FindString(r.Snippet); m != "" {
				s.Contact = m
			}
		case "restaurant":
			if m := addressRe.FindString(r.Snippet); m != "" {
				s.Location = m
			}
		}
		suggestions = append(suggestions, s)
	}
	return suggestions
}

// parseSimCardInfo buckets SIM purchase hits by venue kind keyed off
// snippet keywords.
func parseSimCardInfo(results []models.WebResult) models.SimCardInfo {
	info := models.SimCardInfo{GeneralInfo: []models.ServiceSuggestion{}}
	for _, r := range results {
		entry := models.ServiceSuggestion{Name: r.Title, Description: r.Snippet, SourceURL: r.Link}
		lower := strings.ToLower(r.Snippet)
		switch {
		case strings.Contains(lower, "airport"):
			info.AirportPurchaseInfo = append(info.AirportPurchaseInfo, entry)
		case strings.Contains(lower, "store") || strings.Contains(lower, "provider") || strings.Contains(lower, "shop"):
			info.StoreInfo = append(info.StoreInfo, entry)
		default:
			info.GeneralInfo = append(info.GeneralInfo, entry)
		}
	}
	return info
}

func (p *LogisticsPlanner) synthesize(ctx context.Context, req LogisticsRequest, gathered map[string]interface{}, errs []string) (models.LocalLogisticsPlan, error) {
	prompt := fmt.Sprintf(`You are a medical tourism logistics coordinator. Synthesize the gathered
data below into one local logistics plan.

REQUEST:
- Destination: %s, %s
- Stay: %s to %s, %d guests
- Airport pick-up required: %t
- Local transportation needs: %s
- Additional services: %s
- Dietary needs: %s
- SIM card assistance: %t
- Leisure interests: %s
- Accessibility needs: %s

GATHERED DATA (JSON):
%s

SUB-TOOL ERRORS (JSON):
%s

Respond with ONLY one JSON object with these keys:
"medical_destination_city", "medical_destination_country",
"airport_pickup" (object or null), "local_transport" (array),
"local_services" (array of {"service_type","suggestions"}),
"dietary_recommendations" (same shape), "sim_card_info" (object or null),
"leisure_activities" (array of {"service_type","suggestions"}),
"message" (one sentence for the patient), "error" (string or null).
Keep gathered field values verbatim. No prose, no markdown fences.`,
		req.MedicalDestinationCity, req.MedicalDestinationCountry,
		req.MedicalStayStartDate, req.MedicalStayEndDate, req.NumGuestsTotal,
		req.AirportPickupRequired,
		strings.Join(req.LocalTransportationNeeds, ", "),
		strings.Join(req.AdditionalServicesNeeded, ", "),
		strings.Join(req.DietaryNeeds, ", "),
		req.SimCardAssistanceNeeded,
		strings.Join(req.LeisureInterests, ", "),
		req.PatientAccessibilityNeeds,
		mustJSON(gathered), mustJSON(errs))

	out, err := generate(ctx, p.llm, p.tracker, p.model, prompt)
	if err != nil {
		return models.LocalLogisticsPlan{}, err
	}
	cleaned := extractFirstJSON(stripFences(out))
	var plan models.LocalLogisticsPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return models.LocalLogisticsPlan{}, fmt.Errorf("parsing synthesized plan: %w", err)
	}
	return plan, nil
}
