package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// MinQueryLen is the shortest query that triggers a suggestion lookup.
const MinQueryLen = 2

const maxCandidates = 5

// Candidate is one disambiguated place returned by the suggestion lookup.
// A candidate always carries both a name and coordinates.
type Candidate struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"` // ISO code
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Label renders the display label: name[, state][, country-display-name].
func (c Candidate) Label() string {
	parts := []string{c.Name}
	if c.State != "" {
		parts = append(parts, c.State)
	}
	if c.Country != "" {
		parts = append(parts, CountryName(c.Country))
	}
	return strings.Join(parts, ", ")
}

// CountryName resolves an ISO country code to its English display name,
// falling back to the raw code when resolution fails.
func CountryName(code string) string {
	reg, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := display.English.Regions().Name(reg); name != "" {
		return name
	}
	return code
}

// Resolver turns free-text input into location candidates via the
// OpenWeatherMap geocoding API, and coordinates into friendly names via the
// optional Google reverse geocoder.
type Resolver struct {
	apiKey      string
	geocoderKey string
	baseURL     string
	httpClient  *http.Client
	circuit     *gobreaker.CircuitBreaker
}

// NewResolver creates a Resolver. geocoderKey may be empty, which disables
// reverse geocoding.
func NewResolver(client *http.Client, apiKey, geocoderKey string) *Resolver {
	return NewResolverWithBaseURL(client, apiKey, geocoderKey, "https://api.openweathermap.org/geo/1.0")
}

// NewResolverWithBaseURL is NewResolver pointed at a different geocoding
// endpoint, for tests and proxies.
func NewResolverWithBaseURL(client *http.Client, apiKey, geocoderKey, baseURL string) *Resolver {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoding",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Resolver{
		apiKey:      apiKey,
		geocoderKey: geocoderKey,
		baseURL:     baseURL,
		httpClient:  client,
		circuit:     cb,
	}
}

// Suggest returns up to five candidates for a free-text query. Queries
// shorter than MinQueryLen after trimming return nothing. Lookup failures
// are logged and swallowed: suggestions just disappear, the user is never
// shown an error for them.
func (r *Resolver) Suggest(ctx context.Context, query string) []Candidate {
	query = strings.TrimSpace(query)
	if len(query) < MinQueryLen {
		return nil
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", fmt.Sprintf("%d", maxCandidates))
	values.Set("appid", r.apiKey)

	u := fmt.Sprintf("%s/direct?%s", r.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Printf("geo: building suggest request failed: %v", err)
		return nil
	}

	result, err := r.circuit.Execute(func() (interface{}, error) {
		resp, execErr := r.httpClient.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		log.Printf("geo: suggest lookup failed for %q: %v", query, err)
		return nil
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	var payload []struct {
		Name    string  `json:"name"`
		State   string  `json:"state"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Printf("geo: decoding suggest response failed: %v", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(payload))
	for _, p := range payload {
		candidates = append(candidates, Candidate{
			Name:    p.Name,
			State:   p.State,
			Country: p.Country,
			Lat:     p.Lat,
			Lon:     p.Lon,
		})
		if len(candidates) == maxCandidates {
			break
		}
	}
	return candidates
}

// ReverseName looks up a friendly place label for device coordinates. It is
// best-effort: without a geocoder key, or on any failure, the caller falls
// back to the weather API's own city name.
func (r *Resolver) ReverseName(lat, lon float64) (string, bool) {
	if r.geocoderKey == "" {
		return "", false
	}

	geocoder.ApiKey = r.geocoderKey
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil || len(addresses) == 0 {
		log.Printf("geo: reverse geocode failed for %.4f,%.4f: %v", lat, lon, err)
		return "", false
	}

	addr := addresses[0]
	switch {
	case addr.City != "" && addr.State != "":
		return addr.City + ", " + addr.State, true
	case addr.City != "":
		return addr.City, true
	case addr.FormattedAddress != "":
		return addr.FormattedAddress, true
	default:
		return "", false
	}
}
