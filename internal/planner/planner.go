package planner

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/internal/telemetry"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/provider"
)

var tracer = otel.Tracer("planner")

// MedicalDirectory searches the local treatment/hospital reference store.
type MedicalDirectory interface {
	SearchTreatments(q string, k int) ([]models.Treatment, error)
	SearchHospitals(q, location string, k int) ([]models.Hospital, error)
}

// CostEstimator estimates procedure costs for a destination country.
type CostEstimator interface {
	Estimate(procedure, country string) (models.CostEstimate, error)
}

// VisaChecker looks up visa rules for a nationality/destination pair.
type VisaChecker interface {
	Check(nationality, destinationCountry string) (models.VisaInfo, error)
}

// WebSearcher runs a free-text web search.
type WebSearcher interface {
	Search(ctx context.Context, q string, k int) ([]models.WebResult, error)
}

// AirportResolver maps a city name to its airports.
type AirportResolver interface {
	Lookup(ctx context.Context, city string) ([]models.AirportInfo, error)
}

// FlightSearcher finds flight offers between two IATA codes.
type FlightSearcher interface {
	Search(ctx context.Context, originIATA, destinationIATA, departureDate string, adults int) ([]models.FlightOption, error)
}

// AccommodationFinder searches the accommodation reference store.
type AccommodationFinder interface {
	Find(city string, nights int, requiredFeatures []string, k int) ([]models.AccommodationOption, error)
}

// WeatherSource fetches a forecast for a city and date.
type WeatherSource interface {
	Forecast(ctx context.Context, city, date string) (models.WeatherInfo, error)
}

// TransportCatalog serves local medical transport options.
type TransportCatalog interface {
	AirportPickup(city string) (models.TransportOption, error)
	LocalTransport(city string) ([]models.TransportOption, error)
}

// synthesisModel picks the routing model for orchestrator synthesis calls.
func synthesisModel(cfg *config.Config) string {
	if m := cfg.LLM.Routing.Synthesis; m != "" {
		return m
	}
	return cfg.LLM.Routing.Fallback
}

// generate runs one synthesis completion and records its cost.
func generate(ctx context.Context, llm provider.LLMProvider, tracker *telemetry.CostTracker, model, prompt string) (string, error) {
	out, inTok, outTok, err := llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{
		"temperature": 0.2,
	})
	if err != nil {
		return "", err
	}
	if tracker != nil {
		tracker.Record(model, inTok, outTok, llm.CalculateCost(inTok, outTok, model))
	}
	return out, nil
}

// stripFences removes markdown code fences around a model response.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// extractFirstJSON finds the first balanced top-level JSON object in a string.
func extractFirstJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}

// extractFirstJSONArray finds the first balanced top-level JSON array.
func extractFirstJSONArray(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		if ch == '[' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == ']' {
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}

// toMap converts any JSON-serializable value into a generic mapping so
// synthesis sees a uniform shape regardless of which adapter produced it.
func toMap(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

func mustJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// calculateNights returns check_out - check_in in days, or 0 when the dates
// do not parse or are inverted.
func calculateNights(checkIn, checkOut string) int {
	in, err1 := time.Parse("2006-01-02", strings.TrimSpace(checkIn))
	out, err2 := time.Parse("2006-01-02", strings.TrimSpace(checkOut))
	if err1 != nil || err2 != nil {
		return 0
	}
	n := int(out.Sub(in).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}
