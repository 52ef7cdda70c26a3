package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

// Catalog is an in-memory snapshot of the reference data. The lookup
// tools read from a Catalog so they work identically whether the data
// came from Postgres or straight from the seed files.
type Catalog struct {
	Treatments     []models.Treatment
	Hospitals      []models.Hospital
	Accommodations []models.AccommodationOption
	Transport      []TransportRecord
	VisaRules      []VisaRule
}

// LoadCatalog reads the full reference catalog from the store.
func LoadCatalog(ctx context.Context, s *Store) (*Catalog, error) {
	treatments, err := s.ListTreatments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	hospitals, err := s.ListHospitals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hospitals: %w", err)
	}
	accommodations, err := s.ListAccommodations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}
	transport, err := s.ListTransport(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transport: %w", err)
	}
	visaRules, err := s.ListVisaRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list visa rules: %w", err)
	}
	return &Catalog{
		Treatments:     treatments,
		Hospitals:      hospitals,
		Accommodations: accommodations,
		Transport:      transport,
		VisaRules:      visaRules,
	}, nil
}

// Seed file names expected inside the seed directory.
const (
	seedTreatments     = "treatments.json"
	seedHospitals      = "hospitals.json"
	seedAccommodations = "accommodations.json"
	seedTransport      = "transport.json"
	seedVisaRules      = "visa_rules.json"
)

// LoadCatalogFromDir reads the catalog from JSON seed files, for running
// without Postgres. Missing files leave their section empty.
func LoadCatalogFromDir(dir string) (*Catalog, error) {
	c := &Catalog{}
	if err := readSeedFile(filepath.Join(dir, seedTreatments), &c.Treatments); err != nil {
		return nil, err
	}
	if err := readSeedFile(filepath.Join(dir, seedHospitals), &c.Hospitals); err != nil {
		return nil, err
	}
	if err := readSeedFile(filepath.Join(dir, seedAccommodations), &c.Accommodations); err != nil {
		return nil, err
	}
	if err := readSeedFile(filepath.Join(dir, seedTransport), &c.Transport); err != nil {
		return nil, err
	}
	if err := readSeedFile(filepath.Join(dir, seedVisaRules), &c.VisaRules); err != nil {
		return nil, err
	}
	return c, nil
}

func readSeedFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// SeedFromDir imports the JSON seed files into Postgres.
func (s *Store) SeedFromDir(ctx context.Context, dir string) error {
	c, err := LoadCatalogFromDir(dir)
	if err != nil {
		return err
	}
	for _, t := range c.Treatments {
		if err := s.UpsertTreatment(ctx, t); err != nil {
			return fmt.Errorf("seed treatment %s: %w", t.ID, err)
		}
	}
	for _, h := range c.Hospitals {
		if err := s.UpsertHospital(ctx, h); err != nil {
			return fmt.Errorf("seed hospital %s: %w", h.ID, err)
		}
	}
	for _, a := range c.Accommodations {
		if err := s.UpsertAccommodation(ctx, a); err != nil {
			return fmt.Errorf("seed accommodation %s: %w", a.ID, err)
		}
	}
	for _, tr := range c.Transport {
		if err := s.UpsertTransport(ctx, tr); err != nil {
			return fmt.Errorf("seed transport %s/%s: %w", tr.City, tr.Option.Provider, err)
		}
	}
	for _, v := range c.VisaRules {
		if err := s.UpsertVisaRule(ctx, v); err != nil {
			return fmt.Errorf("seed visa rule %s->%s: %w", v.Nationality, v.DestinationCountry, err)
		}
	}
	return nil
}
