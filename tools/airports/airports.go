// Package airports resolves city names to IATA airport codes via the
// Amadeus reference-data locations API.
package airports

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/amadeus"
)

type Resolver struct {
	client *amadeus.Client
}

func NewResolver(client *amadeus.Client) *Resolver {
	return &Resolver{client: client}
}

// Lookup returns the airports matching a city name, best match first.
func (r *Resolver) Lookup(ctx context.Context, city string) ([]models.AirportInfo, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("city name is required")
	}

	q := url.Values{}
	q.Set("keyword", city)
	q.Set("subType", "AIRPORT,CITY")
	q.Set("page[limit]", "5")

	var resp struct {
		Data []struct {
			Name     string `json:"name"`
			IataCode string `json:"iataCode"`
			SubType  string `json:"subType"`
			Address  struct {
				CityName    string `json:"cityName"`
				CountryCode string `json:"countryCode"`
			} `json:"address"`
		} `json:"data"`
	}
	if err := r.client.Get(ctx, "/v1/reference-data/locations", q, &resp); err != nil {
		return nil, fmt.Errorf("location lookup: %w", err)
	}

	var out []models.AirportInfo
	for _, d := range resp.Data {
		if d.IataCode == "" {
			continue
		}
		out = append(out, models.AirportInfo{
			CityName:    d.Address.CityName,
			AirportName: d.Name,
			IATACode:    d.IataCode,
			CountryCode: d.Address.CountryCode,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no airport found for %q", city)
	}
	return out, nil
}
