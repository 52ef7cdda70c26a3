// Package transport looks up airport pickup and local medical
// transport providers for a destination city.
package transport

import (
	"fmt"

	"github.com/kzxian1201/medical-tourism-planning-system/internal/store"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/utils"
)

const (
	TypeAirportPickup  = "airport_pickup"
	TypeLocalTransport = "local_transport"
)

type Catalog struct {
	catalog *store.Catalog
}

func NewCatalog(catalog *store.Catalog) *Catalog {
	return &Catalog{catalog: catalog}
}

// AirportPickup returns the cheapest airport pickup provider for the city.
func (c *Catalog) AirportPickup(city string) (models.TransportOption, error) {
	options := c.byType(city, TypeAirportPickup)
	if len(options) == 0 {
		return models.TransportOption{}, fmt.Errorf("no airport pickup provider on file for %q", city)
	}
	best := options[0]
	for _, o := range options[1:] {
		if o.PriceUSD < best.PriceUSD {
			best = o
		}
	}
	return best, nil
}

// LocalTransport returns the in-city transport options for the city.
func (c *Catalog) LocalTransport(city string) ([]models.TransportOption, error) {
	options := c.byType(city, TypeLocalTransport)
	if len(options) == 0 {
		return nil, fmt.Errorf("no local transport on file for %q", city)
	}
	return options, nil
}

func (c *Catalog) byType(city, transportType string) []models.TransportOption {
	cityKey := utils.NormKey(city)
	var out []models.TransportOption
	for _, r := range c.catalog.Transport {
		if utils.NormKey(r.City) != cityKey || r.Option.TransportType != transportType {
			continue
		}
		out = append(out, r.Option)
	}
	return out
}
