package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/s4584690/Pixel-Weather/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
// Raw condition codes are collapsed to coarse categories before they leave
// this package.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) CurrentCondition(ctx context.Context, lat, lon float64) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", lat))
		values.Set("lon", fmt.Sprintf("%f", lon))
		values.Set("units", "metric")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Weather []struct {
			ID int `json:"id"`
		} `json:"weather"`
		Dt int64 `json:"dt"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("decode openweather response: %w", err)
	}

	if len(payload.Weather) == 0 {
		return weather.Observation{}, fmt.Errorf("openweather response contains no conditions")
	}

	observedAt := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		observedAt = time.Now().UTC()
	}

	return weather.Observation{
		Category:   weather.CategoryFromCode(payload.Weather[0].ID),
		ObservedAt: observedAt,
	}, nil
}
