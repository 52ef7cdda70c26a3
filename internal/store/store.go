// Package store is the Postgres-backed reference catalog: treatments,
// hospitals, accessible accommodations, local transport providers and
// visa rules, plus user accounts for the optional auth surface.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

type Store struct {
	DB *sql.DB
}

// TransportRecord is a transport catalog row keyed by destination city.
type TransportRecord struct {
	City   string                 `json:"city"`
	Option models.TransportOption `json:"option"`
}

// VisaRule is a visa requirement row keyed by nationality and destination.
type VisaRule struct {
	Nationality        string          `json:"nationality"`
	DestinationCountry string          `json:"destination_country"`
	Info               models.VisaInfo `json:"info"`
}

// New opens a connection using the configured Postgres settings.
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Treatment operations

func (s *Store) UpsertTreatment(ctx context.Context, t models.Treatment) error {
	details, err := json.Marshal(t.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO treatments (id, name, category, description, typical_stay_days, cost_usd_min, cost_usd_max, details)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  category = EXCLUDED.category,
  description = EXCLUDED.description,
  typical_stay_days = EXCLUDED.typical_stay_days,
  cost_usd_min = EXCLUDED.cost_usd_min,
  cost_usd_max = EXCLUDED.cost_usd_max,
  details = EXCLUDED.details
`, t.ID, t.Name, t.Category, t.Description, t.TypicalStayDays, t.CostUSDMin, t.CostUSDMax, details)
	return err
}

func (s *Store) ListTreatments(ctx context.Context) ([]models.Treatment, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, name, category, description, typical_stay_days, cost_usd_min, cost_usd_max, details
FROM treatments
ORDER BY name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Treatment
	for rows.Next() {
		var t models.Treatment
		var details []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Description, &t.TypicalStayDays, &t.CostUSDMin, &t.CostUSDMax, &details); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &t.Details); err != nil {
				return nil, fmt.Errorf("treatment %s details: %w", t.ID, err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Hospital operations

func (s *Store) UpsertHospital(ctx context.Context, h models.Hospital) error {
	details, err := json.Marshal(h.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO hospitals (id, name, city, country, specialties, rating, details)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  city = EXCLUDED.city,
  country = EXCLUDED.country,
  specialties = EXCLUDED.specialties,
  rating = EXCLUDED.rating,
  details = EXCLUDED.details
`, h.ID, h.Name, h.City, h.Country, pq.Array(h.Specialties), h.Rating, details)
	return err
}

func (s *Store) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, name, city, country, specialties, rating, details
FROM hospitals
ORDER BY rating DESC, name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Hospital
	for rows.Next() {
		var h models.Hospital
		var specialties pq.StringArray
		var details []byte
		if err := rows.Scan(&h.ID, &h.Name, &h.City, &h.Country, &specialties, &h.Rating, &details); err != nil {
			return nil, err
		}
		h.Specialties = specialties
		if len(details) > 0 {
			if err := json.Unmarshal(details, &h.Details); err != nil {
				return nil, fmt.Errorf("hospital %s details: %w", h.ID, err)
			}
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Accommodation operations

func (s *Store) UpsertAccommodation(ctx context.Context, a models.AccommodationOption) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO accommodations (id, name, location, city, country, min_cost_per_night_usd, max_cost_per_night_usd, accessibility_features, availability, notes, nearby_landmarks, image_url, star_rating, accommodation_type)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  location = EXCLUDED.location,
  city = EXCLUDED.city,
  country = EXCLUDED.country,
  min_cost_per_night_usd = EXCLUDED.min_cost_per_night_usd,
  max_cost_per_night_usd = EXCLUDED.max_cost_per_night_usd,
  accessibility_features = EXCLUDED.accessibility_features,
  availability = EXCLUDED.availability,
  notes = EXCLUDED.notes,
  nearby_landmarks = EXCLUDED.nearby_landmarks,
  image_url = EXCLUDED.image_url,
  star_rating = EXCLUDED.star_rating,
  accommodation_type = EXCLUDED.accommodation_type
`, a.ID, a.Name, a.Location, a.City, a.Country, a.MinCostPerNightUSD, a.MaxCostPerNightUSD,
		pq.Array(a.AccessibilityFeatures), a.Availability, a.Notes, pq.Array(a.NearbyLandmarks),
		a.ImageURL, a.StarRating, a.AccommodationType)
	return err
}

func (s *Store) ListAccommodations(ctx context.Context) ([]models.AccommodationOption, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, name, location, city, country, min_cost_per_night_usd, max_cost_per_night_usd, accessibility_features, availability, notes, nearby_landmarks, image_url, star_rating, accommodation_type
FROM accommodations
ORDER BY city, min_cost_per_night_usd
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AccommodationOption
	for rows.Next() {
		var a models.AccommodationOption
		var features, landmarks pq.StringArray
		if err := rows.Scan(&a.ID, &a.Name, &a.Location, &a.City, &a.Country, &a.MinCostPerNightUSD, &a.MaxCostPerNightUSD,
			&features, &a.Availability, &a.Notes, &landmarks, &a.ImageURL, &a.StarRating, &a.AccommodationType); err != nil {
			return nil, err
		}
		a.AccessibilityFeatures = features
		a.NearbyLandmarks = landmarks
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transport operations

func (s *Store) UpsertTransport(ctx context.Context, r TransportRecord) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO transport_options (city, provider, transport_type, description, price_usd, accessibility, booking_notes)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (city, provider, transport_type) DO UPDATE SET
  description = EXCLUDED.description,
  price_usd = EXCLUDED.price_usd,
  accessibility = EXCLUDED.accessibility,
  booking_notes = EXCLUDED.booking_notes
`, r.City, r.Option.Provider, r.Option.TransportType, r.Option.Description, r.Option.PriceUSD, r.Option.Accessibility, r.Option.BookingNotes)
	return err
}

func (s *Store) ListTransport(ctx context.Context) ([]TransportRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT city, provider, transport_type, description, price_usd, accessibility, booking_notes
FROM transport_options
ORDER BY city, price_usd
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransportRecord
	for rows.Next() {
		var r TransportRecord
		if err := rows.Scan(&r.City, &r.Option.Provider, &r.Option.TransportType, &r.Option.Description, &r.Option.PriceUSD, &r.Option.Accessibility, &r.Option.BookingNotes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Visa rule operations

func (s *Store) UpsertVisaRule(ctx context.Context, r VisaRule) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO visa_rules (nationality, destination_country, visa_required, visa_type, stay_duration_notes, processing_time_days, required_documents, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (nationality, destination_country) DO UPDATE SET
  visa_required = EXCLUDED.visa_required,
  visa_type = EXCLUDED.visa_type,
  stay_duration_notes = EXCLUDED.stay_duration_notes,
  processing_time_days = EXCLUDED.processing_time_days,
  required_documents = EXCLUDED.required_documents,
  notes = EXCLUDED.notes
`, r.Nationality, r.DestinationCountry, r.Info.VisaRequired, r.Info.VisaType, r.Info.StayDurationNotes,
		r.Info.ProcessingTimeDays, pq.Array(r.Info.RequiredDocuments), r.Info.Notes)
	return err
}

func (s *Store) ListVisaRules(ctx context.Context) ([]VisaRule, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT nationality, destination_country, visa_required, visa_type, stay_duration_notes, processing_time_days, required_documents, notes
FROM visa_rules
ORDER BY nationality, destination_country
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VisaRule
	for rows.Next() {
		var r VisaRule
		var docs pq.StringArray
		if err := rows.Scan(&r.Nationality, &r.DestinationCountry, &r.Info.VisaRequired, &r.Info.VisaType,
			&r.Info.StayDurationNotes, &r.Info.ProcessingTimeDays, &docs, &r.Info.Notes); err != nil {
			return nil, err
		}
		r.Info.RequiredDocuments = docs
		out = append(out, r)
	}
	return out, rows.Err()
}

// SavedPlanRecord is a persisted final plan snapshot for a session.
type SavedPlanRecord struct {
	ID        string
	SessionID string
	Plan      []byte
	CreatedAt time.Time
}

// SaveFinalPlan stores a final plan document for later retrieval.
func (s *Store) SaveFinalPlan(ctx context.Context, sessionID string, plan []byte) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO final_plans (session_id, plan) VALUES ($1,$2) RETURNING id
`, sessionID, plan).Scan(&id)
	return id, err
}

// LatestFinalPlan returns the most recent plan saved for a session.
func (s *Store) LatestFinalPlan(ctx context.Context, sessionID string) (SavedPlanRecord, bool, error) {
	var rec SavedPlanRecord
	err := s.DB.QueryRowContext(ctx, `
SELECT id, session_id, plan, created_at
FROM final_plans
WHERE session_id=$1
ORDER BY created_at DESC
LIMIT 1
`, sessionID).Scan(&rec.ID, &rec.SessionID, &rec.Plan, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return SavedPlanRecord{}, false, nil
	}
	if err != nil {
		return SavedPlanRecord{}, false, err
	}
	return rec, true, nil
}
