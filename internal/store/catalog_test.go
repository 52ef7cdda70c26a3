package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestLoadCatalogFromDir(t *testing.T) {
	dir := t.TempDir()
	treatments := `[{"id":"trt-1","name":"Dental Implants","category":"Dentistry","cost_usd_min":800,"cost_usd_max":2500}]`
	hospitals := `[{"id":"hsp-1","name":"City Hospital","city":"Bangkok","country":"Thailand","specialties":["Dentistry"],"rating":4.5}]`
	if err := os.WriteFile(filepath.Join(dir, "treatments.json"), []byte(treatments), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hospitals.json"), []byte(hospitals), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	c, err := LoadCatalogFromDir(dir)
	if err != nil {
		t.Fatalf("LoadCatalogFromDir: %v", err)
	}
	if len(c.Treatments) != 1 || c.Treatments[0].ID != "trt-1" {
		t.Fatalf("unexpected treatments: %+v", c.Treatments)
	}
	if len(c.Hospitals) != 1 || c.Hospitals[0].City != "Bangkok" {
		t.Fatalf("unexpected hospitals: %+v", c.Hospitals)
	}
	// Missing seed files leave their sections empty.
	if len(c.Accommodations) != 0 || len(c.Transport) != 0 || len(c.VisaRules) != 0 {
		t.Fatalf("expected empty sections for missing files")
	}
}

func TestLoadCatalogFromDirBadJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "treatments.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := LoadCatalogFromDir(dir); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestListTreatments(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, category, description, typical_stay_days, cost_usd_min, cost_usd_max, details`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "description", "typical_stay_days", "cost_usd_min", "cost_usd_max", "details"}).
			AddRow("trt-1", "Dental Implants", "Dentistry", "Implant placement.", 7, 800.0, 2500.0, []byte(`{"sessions":2}`)))

	s := &Store{DB: db}
	got, err := s.ListTreatments(context.Background())
	if err != nil {
		t.Fatalf("ListTreatments: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Dental Implants" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[0].Details["sessions"] != float64(2) {
		t.Fatalf("details not decoded: %+v", got[0].Details)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
