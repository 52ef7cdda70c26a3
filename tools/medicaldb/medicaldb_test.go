package medicaldb

import (
	"testing"

	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

func testCatalog() *store.Catalog {
	return &store.Catalog{
		Treatments: []models.Treatment{
			{ID: "trt-knee", Name: "Total Knee Replacement", Category: "Orthopedics", Description: "Full knee joint replacement surgery."},
			{ID: "trt-lasik", Name: "LASIK Eye Surgery", Category: "Ophthalmology", Description: "Laser vision correction."},
		},
		Hospitals: []models.Hospital{
			{ID: "hsp-kl", Name: "Gleneagles Kuala Lumpur", City: "Kuala Lumpur", Country: "Malaysia", Specialties: []string{"Orthopedics", "Cardiology"}, Rating: 4.7},
			{ID: "hsp-bkk", Name: "Bumrungrad International", City: "Bangkok", Country: "Thailand", Specialties: []string{"Ophthalmology"}, Rating: 4.8},
		},
	}
}

func TestSearchTreatmentsFuzzy(t *testing.T) {
	s, err := NewSearch(testCatalog())
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	got, err := s.SearchTreatments("knee replacement", 3)
	if err != nil {
		t.Fatalf("SearchTreatments: %v", err)
	}
	if len(got) == 0 || got[0].ID != "trt-knee" {
		t.Fatalf("expected knee treatment first, got %+v", got)
	}
}

func TestSearchTreatmentsEmptyQuery(t *testing.T) {
	s, err := NewSearch(testCatalog())
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	if _, err := s.SearchTreatments("  ", 3); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestSearchHospitalsLocationFilter(t *testing.T) {
	s, err := NewSearch(testCatalog())
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	got, err := s.SearchHospitals("Orthopedics", "Malaysia", 5)
	if err != nil {
		t.Fatalf("SearchHospitals: %v", err)
	}
	if len(got) != 1 || got[0].ID != "hsp-kl" {
		t.Fatalf("expected only the Malaysian hospital, got %+v", got)
	}
}

func TestHospitalsForTreatmentUsesCategory(t *testing.T) {
	s, err := NewSearch(testCatalog())
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	treatment := models.Treatment{Name: "LASIK Eye Surgery", Category: "Ophthalmology"}
	got, err := s.HospitalsForTreatment(treatment, "", 5)
	if err != nil {
		t.Fatalf("HospitalsForTreatment: %v", err)
	}
	if len(got) == 0 || got[0].ID != "hsp-bkk" {
		t.Fatalf("expected ophthalmology hospital, got %+v", got)
	}
}
