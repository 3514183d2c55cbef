package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sony/gobreaker"
)

const middayHour = 12

// Client fetches current conditions and forecasts from OpenWeatherMap.
// Outbound calls run through a circuit breaker; there are no retries, every
// failure is terminal for that attempt.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

// NewClient creates a Client sharing the given HTTP client.
func NewClient(client *http.Client, apiKey string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    "https://api.openweathermap.org/data/2.5",
		httpClient: client,
		circuit:    cb,
	}
}

// query builds the lookup parameters for either search mode. No units
// parameter is sent: temperatures arrive in Kelvin, the absolute unit.
func (c *Client) query(d Descriptor) url.Values {
	values := url.Values{}
	values.Set("appid", c.apiKey)

	if d.Mode == ModeCoords {
		values.Set("lat", fmt.Sprintf("%f", d.Lat))
		values.Set("lon", fmt.Sprintf("%f", d.Lon))
	} else {
		values.Set("q", d.Name)
	}
	return values
}

func (c *Client) get(ctx context.Context, endpoint string, d Descriptor) (*http.Response, error) {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, c.query(d).Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

// FetchCurrent fetches current conditions for a location. Any non-success
// upstream status becomes ErrLocationNotFound.
func (c *Client) FetchCurrent(ctx context.Context, d Descriptor) (Snapshot, error) {
	if c.apiKey == "" {
		return Snapshot{}, fmt.Errorf("openweather api key is not configured")
	}

	resp, err := c.get(ctx, "weather", d)
	if err != nil {
		return Snapshot{}, fmt.Errorf("current conditions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Snapshot{}, fmt.Errorf("%w: status %d", ErrLocationNotFound, resp.StatusCode)
	}

	var payload struct {
		Name string `json:"name"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			ID          int    `json:"id"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Sys struct {
			Country string `json:"country"`
			Sunrise int64  `json:"sunrise"`
			Sunset  int64  `json:"sunset"`
		} `json:"sys"`
		Timezone int `json:"timezone"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse current conditions: %w", err)
	}

	snap := Snapshot{
		City:           payload.Name,
		Country:        payload.Sys.Country,
		TempK:          payload.Main.Temp,
		FeelsLikeK:     payload.Main.FeelsLike,
		Humidity:       payload.Main.Humidity,
		Sunrise:        payload.Sys.Sunrise,
		Sunset:         payload.Sys.Sunset,
		TimezoneOffset: payload.Timezone,
	}
	if len(payload.Weather) > 0 {
		snap.Description = payload.Weather[0].Description
		snap.ConditionID = payload.Weather[0].ID
		snap.Icon = payload.Weather[0].Icon
	}

	return snap, nil
}

// FetchForecast fetches the 5-day/3-hour forecast series and reduces it to
// the midday slot of each day, at most five entries in chronological order.
// An empty reduction is not an error; the widget just hides the strip.
func (c *Client) FetchForecast(ctx context.Context, d Descriptor) ([]ForecastEntry, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	resp, err := c.get(ctx, "forecast", d)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrForecastUnavailable, resp.StatusCode)
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				ID          int    `json:"id"`
				Description string `json:"description"`
				Icon        string `json:"icon"`
			} `json:"weather"`
		} `json:"list"`
		City struct {
			Timezone int `json:"timezone"`
		} `json:"city"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse forecast: %w", err)
	}

	offset := time.Duration(payload.City.Timezone) * time.Second

	var entries []ForecastEntry
	for _, item := range payload.List {
		local := time.Unix(item.Dt, 0).UTC().Add(offset)
		if local.Hour() != middayHour || local.Minute() != 0 {
			continue
		}

		entry := ForecastEntry{
			Timestamp: item.Dt,
			TempK:     item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			entry.ConditionID = item.Weather[0].ID
			entry.Description = item.Weather[0].Description
			entry.Icon = item.Weather[0].Icon
		}
		entries = append(entries, entry)

		if len(entries) == 5 {
			break
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries, nil
}
