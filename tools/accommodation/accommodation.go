// Package accommodation suggests accessible places to stay near the
// treatment destination, priced for the stay length.
package accommodation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/utils"
)

type Search struct {
	catalog *store.Catalog
}

func NewSearch(catalog *store.Catalog) *Search {
	return &Search{catalog: catalog}
}

// Find returns accommodations in the city, cheapest first, with the
// total estimate filled in for the given number of nights. Entries
// missing every requested accessibility feature are filtered out.
func (s *Search) Find(city string, nights int, requiredFeatures []string, k int) ([]models.AccommodationOption, error) {
	cityKey := utils.NormKey(city)
	if cityKey == "" {
		return nil, fmt.Errorf("city is required")
	}
	if nights <= 0 {
		nights = 1
	}
	if k <= 0 {
		k = 3
	}

	var out []models.AccommodationOption
	for _, a := range s.catalog.Accommodations {
		if utils.NormKey(a.City) != cityKey {
			continue
		}
		if !hasFeatures(a.AccessibilityFeatures, requiredFeatures) {
			continue
		}
		avg := (a.MinCostPerNightUSD + a.MaxCostPerNightUSD) / 2
		a.TotalCostEstimateUSD = avg * float64(nights)
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no accommodation on file for %q", city)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TotalCostEstimateUSD < out[j].TotalCostEstimateUSD })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func hasFeatures(have, want []string) bool {
	for _, w := range want {
		wk := utils.NormKey(w)
		if wk == "" {
			continue
		}
		found := false
		for _, h := range have {
			if strings.Contains(utils.NormKey(h), wk) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
