// Package medicaldb searches the reference catalog for treatments and
// hospitals. Records are indexed into an in-memory bleve index so that
// queries tolerate partial and fuzzy names ("knee surgery" finds
// "Total Knee Replacement").
package medicaldb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/utils"
)

const (
	docTypeTreatment = "treatment"
	docTypeHospital  = "hospital"
)

type Search struct {
	mu         sync.RWMutex
	index      bleve.Index
	treatments map[string]models.Treatment
	hospitals  map[string]models.Hospital
}

type indexDoc struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Specialties string `json:"specialties"`
}

// NewSearch builds the in-memory index over the catalog.
func NewSearch(catalog *store.Catalog) (*Search, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve index: %w", err)
	}
	s := &Search{
		index:      index,
		treatments: make(map[string]models.Treatment),
		hospitals:  make(map[string]models.Hospital),
	}
	for _, t := range catalog.Treatments {
		s.treatments[t.ID] = t
		doc := indexDoc{
			Type:        docTypeTreatment,
			Name:        t.Name,
			Category:    t.Category,
			Description: t.Description,
		}
		if err := index.Index(t.ID, doc); err != nil {
			return nil, fmt.Errorf("index treatment %s: %w", t.ID, err)
		}
	}
	for _, h := range catalog.Hospitals {
		s.hospitals[h.ID] = h
		doc := indexDoc{
			Type:        docTypeHospital,
			Name:        h.Name,
			City:        h.City,
			Country:     h.Country,
			Specialties: strings.Join(h.Specialties, " "),
		}
		if err := index.Index(h.ID, doc); err != nil {
			return nil, fmt.Errorf("index hospital %s: %w", h.ID, err)
		}
	}
	return s, nil
}

// SearchTreatments finds treatments matching a free-text query, best
// match first.
func (s *Search) SearchTreatments(q string, k int) ([]models.Treatment, error) {
	ids, err := s.search(q, docTypeTreatment, k)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Treatment
	for _, id := range ids {
		if t, ok := s.treatments[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// SearchHospitals finds hospitals matching a free-text query optionally
// constrained to a location (city or country substring).
func (s *Search) SearchHospitals(q, location string, k int) ([]models.Hospital, error) {
	ids, err := s.search(q, docTypeHospital, k*3)
	if err != nil {
		return nil, err
	}
	loc := utils.NormKey(location)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Hospital
	for _, id := range ids {
		h, ok := s.hospitals[id]
		if !ok {
			continue
		}
		if loc != "" && !strings.Contains(utils.NormKey(h.City), loc) && !strings.Contains(utils.NormKey(h.Country), loc) {
			continue
		}
		out = append(out, h)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// HospitalsForTreatment returns hospitals whose specialties cover the
// treatment's category, best rating first.
func (s *Search) HospitalsForTreatment(t models.Treatment, location string, k int) ([]models.Hospital, error) {
	q := t.Category
	if q == "" {
		q = t.Name
	}
	return s.SearchHospitals(q, location, k)
}

func (s *Search) search(q, docType string, k int) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("query is required")
	}
	if k <= 0 {
		k = 5
	}
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	searchReq.Fields = []string{"type"}
	res, err := s.index.Search(searchReq)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, hit := range res.Hits {
		if utils.Str(hit.Fields["type"]) != docType {
			continue
		}
		out = append(out, hit.ID)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}
