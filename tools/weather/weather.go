// Package weather fetches destination forecasts from WeatherAPI.com.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kzxian1201/medical-tourism-planning-system/config"
	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.WeatherAPIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://api.weatherapi.com/v1"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Forecast returns the forecast summary for city on date (YYYY-MM-DD).
// Dates beyond the provider's forecast window fall back to the nearest
// available day.
func (c *Client) Forecast(ctx context.Context, city, date string) (models.WeatherInfo, error) {
	if c.apiKey == "" {
		return models.WeatherInfo{}, fmt.Errorf("weather API key not configured")
	}
	if strings.TrimSpace(city) == "" {
		return models.WeatherInfo{}, fmt.Errorf("city is required")
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", city)
	q.Set("days", "14")
	if date != "" {
		q.Set("dt", date)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/forecast.json?"+q.Encode(), nil)
	if err != nil {
		return models.WeatherInfo{}, fmt.Errorf("request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.WeatherInfo{}, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return models.WeatherInfo{}, fmt.Errorf("weatherapi status %d: %s", resp.StatusCode, snippet)
	}

	var out struct {
		Location struct {
			Name    string `json:"name"`
			Country string `json:"country"`
		} `json:"location"`
		Forecast struct {
			Forecastday []struct {
				Date string `json:"date"`
				Day  struct {
					AvgTempC          float64 `json:"avgtemp_c"`
					MaxTempC          float64 `json:"maxtemp_c"`
					MinTempC          float64 `json:"mintemp_c"`
					DailyChanceOfRain int     `json:"daily_chance_of_rain"`
					Condition         struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.WeatherInfo{}, fmt.Errorf("decode: %w", err)
	}
	if len(out.Forecast.Forecastday) == 0 {
		return models.WeatherInfo{}, fmt.Errorf("no forecast data for %q", city)
	}

	day := out.Forecast.Forecastday[0]
	for _, fd := range out.Forecast.Forecastday {
		if fd.Date == date {
			day = fd
			break
		}
	}

	return models.WeatherInfo{
		City:         out.Location.Name,
		Country:      out.Location.Country,
		Date:         day.Date,
		Condition:    day.Day.Condition.Text,
		AvgTempC:     day.Day.AvgTempC,
		MaxTempC:     day.Day.MaxTempC,
		MinTempC:     day.Day.MinTempC,
		ChanceOfRain: day.Day.DailyChanceOfRain,
	}, nil
}
