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

// MedicalRequest is the structured input for medical plan synthesis.
type MedicalRequest struct {
	MedicalPurpose     string `json:"medical_purpose"`
	PatientNationality string `json:"patient_nationality"`
	DestinationCountry string `json:"destination_country"`
	EstimatedBudgetUSD string `json:"estimated_budget_usd,omitempty"`
}

// MedicalResult is the aggregate answer: synthesized options plus the joined
// sub-tool error string. Partial success keeps both signals.
type MedicalResult struct {
	Options         []models.MedicalPlanOption `json:"medical_plan_options"`
	Message         string                     `json:"message"`
	Error           string                     `json:"error,omitempty"`
	VisaInformation map[string]interface{}     `json:"visa_information"`
}

// MedicalPlanner fans out the medical sub-tools, synthesizes plan options
// with a constrained model call, and enriches them with full backing records.
type MedicalPlanner struct {
	llm       provider.LLMProvider
	model     string
	directory MedicalDirectory
	costs     CostEstimator
	visas     VisaChecker
	web       WebSearcher
	tracker   *telemetry.CostTracker
	logger    *log.Logger
}

func NewMedicalPlanner(cfg *config.Config, llm provider.LLMProvider, directory MedicalDirectory, costs CostEstimator, visas VisaChecker, web WebSearcher, tracker *telemetry.CostTracker, logger *log.Logger) *MedicalPlanner {
	if logger == nil {
		logger = log.Default()
	}
	return &MedicalPlanner{
		llm:       llm,
		model:     synthesisModel(cfg),
		directory: directory,
		costs:     costs,
		visas:     visas,
		web:       web,
		tracker:   tracker,
		logger:    logger,
	}
}

// Plan runs gather, synthesize, enrich and always returns a structured result.
func (p *MedicalPlanner) Plan(ctx context.Context, req MedicalRequest) MedicalResult {
	ctx, span := tracer.Start(ctx, "planner.medical",
		trace.WithAttributes(
			attribute.String("medical.purpose", req.MedicalPurpose),
			attribute.String("medical.destination", req.DestinationCountry),
		))
	defer span.End()

	p.logger.Printf("medical planning: purpose=%q destination=%q", req.MedicalPurpose, req.DestinationCountry)

	// Step 1: gather all raw data concurrently.
	var (
		treatments   []models.Treatment
		treatmentErr error
		hospitals    []models.Hospital
		hospitalErr  error
		estimate     models.CostEstimate
		estimateErr  error
		visa         models.VisaInfo
		visaErr      error
		webResults   []models.WebResult
		webErr       error
	)

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		treatments, treatmentErr = p.directory.SearchTreatments(req.MedicalPurpose, 5)
	}()
	go func() {
		defer wg.Done()
		hospitals, hospitalErr = p.directory.SearchHospitals(req.MedicalPurpose, req.DestinationCountry, 5)
	}()
	go func() {
		defer wg.Done()
		estimate, estimateErr = p.costs.Estimate(req.MedicalPurpose, req.DestinationCountry)
	}()
	go func() {
		defer wg.Done()
		visa, visaErr = p.visas.Check(req.PatientNationality, req.DestinationCountry)
	}()
	go func() {
		defer wg.Done()
		q := fmt.Sprintf("medical travel %s %s patient reviews costs", req.MedicalPurpose, req.DestinationCountry)
		webResults, webErr = p.web.Search(ctx, q, 5)
	}()
	wg.Wait()

	var subErrors []string
	for _, e := range []struct {
		name string
		err  error
	}{
		{"Treatment search", treatmentErr},
		{"Hospital search", hospitalErr},
		{"Cost estimation", estimateErr},
		{"Visa check", visaErr},
		{"Web research", webErr},
	} {
		if e.err != nil {
			subErrors = append(subErrors, fmt.Sprintf("%s failed: %v", e.name, e.err))
			span.AddEvent("subtool_error", trace.WithAttributes(attribute.String("subtool", e.name)))
		}
	}

	gathered := map[string]interface{}{
		"treatment_results":       subResult(treatments, treatmentErr),
		"hospital_results":        subResult(hospitals, hospitalErr),
		"cost_estimation_results": subResult(estimate, estimateErr),
		"visa_check_results":      subResult(visa, visaErr),
		"web_search_results":      subResult(webResults, webErr),
	}

	// Step 2: synthesize plan options with a constrained model call.
	options, synthErr := p.synthesize(ctx, req, gathered)
	if synthErr != nil {
		p.logger.Printf("medical synthesis failed: %v", synthErr)
		span.RecordError(synthErr)
		span.SetStatus(codes.Error, synthErr.Error())
	}
	if len(options) == 0 {
		options = fallbackOptions(webResults)
	}

	// Step 3: enrich options with full backing records by exact name match.
	hospitalsByName := make(map[string]map[string]interface{}, len(hospitals))
	for _, h := range hospitals {
		hospitalsByName[h.Name] = toMap(h)
	}
	treatmentsByName := make(map[string]map[string]interface{}, len(treatments))
	for _, t := range treatments {
		treatmentsByName[t.Name] = toMap(t)
	}
	for i := range options {
		if full, ok := hospitalsByName[options[i].ClinicName]; ok {
			options[i].FullHospitalDetails = full
		} else {
			options[i].FullHospitalDetails = map[string]interface{}{}
		}
		if full, ok := treatmentsByName[options[i].TreatmentName]; ok {
			options[i].FullTreatmentDetails = full
		} else {
			options[i].FullTreatmentDetails = map[string]interface{}{}
		}
	}

	// Step 4: emit the aggregate. Sub-tool errors ride along even when
	// synthesis produced usable options.
	visaInfo := map[string]interface{}{}
	if visaErr == nil {
		visaInfo = toMap(visa)
	}
	return MedicalResult{
		Options:         options,
		Message:         "Medical planning completed successfully.",
		Error:           strings.Join(subErrors, "; "),
		VisaInformation: visaInfo,
	}
}

// subResult normalizes one sub-tool outcome into the uniform mapping shape
// fed to synthesis: data on success, an error string on failure.
func subResult(data interface{}, err error) map[string]interface{} {
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return map[string]interface{}{"data": data}
}

func (p *MedicalPlanner) synthesize(ctx context.Context, req MedicalRequest, gathered map[string]interface{}) ([]models.MedicalPlanOption, error) {
	prompt := fmt.Sprintf(`You are a medical tourism planning expert. Synthesize the gathered research
below into a list of medical plan options for the patient.

PATIENT REQUEST:
- Medical purpose: %s
- Nationality: %s
- Destination country: %s
- Estimated budget (USD): %s

GATHERED RESEARCH (JSON):
%s

Respond with ONLY a JSON array of option objects, each with exactly these keys:
"treatment_name", "estimated_cost_usd" (string, e.g. "$8,000 - $12,000"),
"clinic_name", "clinic_location", "brief_description", "image_url".
Use clinic and treatment names exactly as they appear in the research so they
can be matched back to the source records. Return [] if the research supports
no options. No prose, no markdown fences.`,
		req.MedicalPurpose, req.PatientNationality, req.DestinationCountry, req.EstimatedBudgetUSD,
		mustJSON(gathered))

	out, err := generate(ctx, p.llm, p.tracker, p.model, prompt)
	if err != nil {
		return nil, err
	}
	cleaned := extractFirstJSONArray(stripFences(out))
	var options []models.MedicalPlanOption
	if err := json.Unmarshal([]byte(cleaned), &options); err != nil {
		return nil, fmt.Errorf("parsing synthesized options: %w", err)
	}
	return options, nil
}

// fallbackOptions builds one degraded option from the best available web
// result when synthesis fails or returns nothing.
func fallbackOptions(webResults []models.WebResult) []models.MedicalPlanOption {
	if len(webResults) == 0 {
		return nil
	}
	return []models.MedicalPlanOption{{
		TreatmentName:    "Web Researched Option",
		EstimatedCostUSD: "Unknown",
		ClinicName:       webResults[0].Title,
		ClinicLocation:   "Unknown",
		BriefDescription: webResults[0].Snippet,
	}}
}
