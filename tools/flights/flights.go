// Package flights searches bookable flight offers through the Amadeus
// flight-offers API and shapes them into compact options for planning.
package flights

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
	"github.com/kzxian1201/medical-tourism-planning-system/tools/amadeus"
)

type Searcher struct {
	client *amadeus.Client
	max    int
}

func NewSearcher(client *amadeus.Client) *Searcher {
	return &Searcher{client: client, max: 5}
}

type offersResponse struct {
	Data []struct {
		ID    string `json:"id"`
		Price struct {
			GrandTotal string `json:"grandTotal"`
			Currency   string `json:"currency"`
		} `json:"price"`
		Itineraries []struct {
			Duration string `json:"duration"`
			Segments []struct {
				Departure struct {
					IataCode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					IataCode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"arrival"`
				CarrierCode   string `json:"carrierCode"`
				Number        string `json:"number"`
				Duration      string `json:"duration"`
				NumberOfStops int    `json:"numberOfStops"`
			} `json:"segments"`
		} `json:"itineraries"`
	} `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

// Search finds one-way offers between two IATA codes on the given date
// (YYYY-MM-DD), cheapest first.
func (s *Searcher) Search(ctx context.Context, originIATA, destinationIATA, departureDate string, adults int) ([]models.FlightOption, error) {
	if originIATA == "" || destinationIATA == "" || departureDate == "" {
		return nil, fmt.Errorf("origin, destination and departure date are required")
	}
	if adults <= 0 {
		adults = 1
	}

	q := url.Values{}
	q.Set("originLocationCode", strings.ToUpper(originIATA))
	q.Set("destinationLocationCode", strings.ToUpper(destinationIATA))
	q.Set("departureDate", departureDate)
	q.Set("adults", strconv.Itoa(adults))
	q.Set("max", strconv.Itoa(s.max))
	q.Set("currencyCode", "USD")

	var resp offersResponse
	if err := s.client.Get(ctx, "/v2/shopping/flight-offers", q, &resp); err != nil {
		return nil, fmt.Errorf("flight offers: %w", err)
	}

	options := make([]models.FlightOption, 0, len(resp.Data))
	for _, offer := range resp.Data {
		if len(offer.Itineraries) == 0 {
			continue
		}
		itin := offer.Itineraries[0]

		total, err := strconv.ParseFloat(offer.Price.GrandTotal, 64)
		if err != nil {
			continue
		}

		opt := models.FlightOption{
			ID:        offer.ID,
			TotalCost: total,
			Currency:  offer.Price.Currency,
			Duration:  formatISODuration(itin.Duration),
			Layovers:  len(itin.Segments) - 1,
		}

		seen := map[string]bool{}
		var airlines []string
		var legs []string
		for _, seg := range itin.Segments {
			opt.Segments = append(opt.Segments, models.FlightSegment{
				DepartureIATA: seg.Departure.IataCode,
				ArrivalIATA:   seg.Arrival.IataCode,
				DepartureTime: seg.Departure.At,
				ArrivalTime:   seg.Arrival.At,
				Duration:      formatISODuration(seg.Duration),
				CarrierCode:   seg.CarrierCode,
				Number:        seg.Number,
				NumberOfStops: seg.NumberOfStops,
			})
			name := resp.Dictionaries.Carriers[seg.CarrierCode]
			if name == "" {
				name = seg.CarrierCode
			}
			if !seen[name] {
				seen[name] = true
				airlines = append(airlines, name)
			}
			legs = append(legs, fmt.Sprintf("%s-%s (%s%s)", seg.Departure.IataCode, seg.Arrival.IataCode, seg.CarrierCode, seg.Number))
		}
		opt.AirlineNames = strings.Join(airlines, ", ")
		opt.SegmentsSummary = strings.Join(legs, " / ")
		options = append(options, opt)
	}

	sort.Slice(options, func(i, j int) bool { return options[i].TotalCost < options[j].TotalCost })
	return options, nil
}

// formatISODuration turns an ISO-8601 duration like PT14H25M into "14h 25m".
func formatISODuration(iso string) string {
	s := strings.TrimPrefix(iso, "PT")
	if s == iso {
		return iso
	}
	s = strings.Replace(s, "H", "h ", 1)
	s = strings.Replace(s, "M", "m", 1)
	return strings.TrimSpace(s)
}
