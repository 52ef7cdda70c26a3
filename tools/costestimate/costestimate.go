// Package costestimate estimates procedure costs from the reference
// catalog's treatment price bands.
package costestimate

import (
	"fmt"
	"strings"

	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/utils"
)

// Regional price multipliers relative to the catalog baseline.
var countryMultiplier = map[string]float64{
	"malaysia": 1.0,
	"thailand": 1.1,
	"turkey":   0.9,
	"india":    0.75,
}

type Estimator struct {
	catalog *store.Catalog
}

func NewEstimator(catalog *store.Catalog) *Estimator {
	return &Estimator{catalog: catalog}
}

// Estimate returns the price band for a procedure, scaled for the
// destination country when one is given.
func (e *Estimator) Estimate(procedure, country string) (models.CostEstimate, error) {
	procedure = strings.TrimSpace(procedure)
	if procedure == "" {
		return models.CostEstimate{}, fmt.Errorf("procedure name is required")
	}

	key := utils.NormKey(procedure)
	var match *models.Treatment
	for i := range e.catalog.Treatments {
		t := &e.catalog.Treatments[i]
		name := utils.NormKey(t.Name)
		if name == key || strings.Contains(name, key) || strings.Contains(key, name) {
			match = t
			break
		}
	}
	if match == nil {
		return models.CostEstimate{}, fmt.Errorf("no cost data for procedure %q", procedure)
	}

	mult := 1.0
	notes := ""
	if country != "" {
		if m, ok := countryMultiplier[utils.NormKey(country)]; ok {
			mult = m
		} else {
			notes = fmt.Sprintf("no regional pricing for %s, catalog baseline used", country)
		}
	}

	return models.CostEstimate{
		ProcedureName: match.Name,
		Location:      country,
		MinUSD:        match.CostUSDMin * mult,
		MaxUSD:        match.CostUSDMax * mult,
		Currency:      "USD",
		Notes:         notes,
	}, nil
}
