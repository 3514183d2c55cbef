package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/olegn/skycast/internal/geo"
	"github.com/olegn/skycast/internal/store"
	"github.com/olegn/skycast/internal/view"
	"github.com/olegn/skycast/internal/weather"
)

type stubFetcher struct {
	calls  int64
	curErr error
}

func (s *stubFetcher) FetchCurrent(ctx context.Context, d weather.Descriptor) (weather.Snapshot, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.curErr != nil {
		return weather.Snapshot{}, s.curErr
	}
	return weather.Snapshot{
		City:        "Paris",
		Country:     "FR",
		TempK:       290.0,
		FeelsLikeK:  288.5,
		Humidity:    60,
		Description: "clear sky",
		ConditionID: 800,
	}, nil
}

func (s *stubFetcher) FetchForecast(ctx context.Context, d weather.Descriptor) ([]weather.ForecastEntry, error) {
	atomic.AddInt64(&s.calls, 1)
	return []weather.ForecastEntry{
		{Timestamp: 1714564800, TempK: 289.0, ConditionID: 500, Description: "light rain"},
	}, nil
}

func newTestApp(t *testing.T, fetcher weather.Fetcher) *fiber.App {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "app_test.db"), 0)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "Paris", "country": "FR", "lat": 48.8566, "lon": 2.3522}]`)
	}))
	t.Cleanup(upstream.Close)

	resolver := geo.NewResolverWithBaseURL(upstream.Client(), "test-key", "", upstream.URL)

	svc := weather.NewService(fetcher, st, 0)
	app := NewApp(svc, resolver, time.Millisecond)

	f := fiber.New()
	RegisterRoutes(f, app)
	return f
}

func postJSON(t *testing.T, f *fiber.App, path string, body any) (*http.Response, view.RenderModel) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var model view.RenderModel
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&model); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
	}
	return resp, model
}

func TestSearchAndUnitSwitch(t *testing.T) {
	fetcher := &stubFetcher{}
	f := newTestApp(t, fetcher)

	resp, model := postJSON(t, f, "/api/v1/search", map[string]any{"city": "Paris"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if model.Phase != view.PhaseDisplayed {
		t.Fatalf("expected displayed, got %s (%q)", model.Phase, model.Error)
	}
	if model.Temperature != "16.9°C" {
		t.Errorf("unexpected temperature %q", model.Temperature)
	}

	fetches := atomic.LoadInt64(&fetcher.calls)

	_, model = postJSON(t, f, "/api/v1/unit", map[string]any{"unit": "fahrenheit"})
	if model.Temperature != "62.3°F" {
		t.Errorf("unexpected fahrenheit temperature %q", model.Temperature)
	}

	if got := atomic.LoadInt64(&fetcher.calls); got != fetches {
		t.Errorf("unit switch must not refetch: %d -> %d upstream calls", fetches, got)
	}
}

func TestSearchEmptyInput(t *testing.T) {
	fetcher := &stubFetcher{}
	f := newTestApp(t, fetcher)

	resp, model := postJSON(t, f, "/api/v1/search", map[string]any{"city": "   "})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if model.Phase != view.PhaseError {
		t.Fatalf("expected error phase, got %s", model.Phase)
	}
	if model.Error != "Please enter a valid location." {
		t.Errorf("unexpected message %q", model.Error)
	}
	if atomic.LoadInt64(&fetcher.calls) != 0 {
		t.Error("blank input must not reach the network")
	}
}

func TestSearchNotFound(t *testing.T) {
	f := newTestApp(t, &stubFetcher{curErr: weather.ErrLocationNotFound})

	_, model := postJSON(t, f, "/api/v1/search", map[string]any{"city": "Nowhereville"})
	if model.Phase != view.PhaseError {
		t.Fatalf("expected error phase, got %s", model.Phase)
	}
	if model.Error != "Location not found." {
		t.Errorf("unexpected message %q", model.Error)
	}
	if model.ShowCard || model.ShowForecast || model.ShowUnitSelector {
		t.Error("error response must hide card, forecast and unit selector")
	}
}

func TestInvalidUnitRejected(t *testing.T) {
	f := newTestApp(t, &stubFetcher{})

	resp, _ := postJSON(t, f, "/api/v1/unit", map[string]any{"unit": "rankine"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestFavoriteToggleLifecycle(t *testing.T) {
	f := newTestApp(t, &stubFetcher{})

	// Toggling with no active search is refused: the button is disabled.
	resp, _ := postJSON(t, f, "/api/v1/favorites/toggle", map[string]any{})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before any search, got %d", resp.StatusCode)
	}

	postJSON(t, f, "/api/v1/search", map[string]any{"city": "Paris"})

	_, model := postJSON(t, f, "/api/v1/favorites/toggle", map[string]any{})
	if !model.FavoriteActive {
		t.Fatal("expected favorite active after first toggle")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/favorites", nil)
	listResp, err := f.Test(req, -1)
	if err != nil {
		t.Fatalf("favorites request failed: %v", err)
	}
	var favs []map[string]any
	if err := json.NewDecoder(listResp.Body).Decode(&favs); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(favs) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(favs))
	}

	_, model = postJSON(t, f, "/api/v1/favorites/toggle", map[string]any{})
	if model.FavoriteActive {
		t.Fatal("expected favorite removed after second toggle")
	}
}

func TestOpenFavorite(t *testing.T) {
	f := newTestApp(t, &stubFetcher{})

	postJSON(t, f, "/api/v1/search", map[string]any{"city": "Paris"})
	postJSON(t, f, "/api/v1/favorites/toggle", map[string]any{})

	_, model := postJSON(t, f, "/api/v1/favorites/open", map[string]any{"key": "paris"})
	if model.Phase != view.PhaseDisplayed {
		t.Fatalf("expected displayed, got %s (%q)", model.Phase, model.Error)
	}
}

func TestSuggest(t *testing.T) {
	f := newTestApp(t, &stubFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggest?q=Paris", nil)
	resp, err := f.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var out []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(out))
	}
	if out[0]["label"] != "Paris, France" {
		t.Errorf("unexpected label %v", out[0]["label"])
	}
}

func TestSuggestShortQuery(t *testing.T) {
	f := newTestApp(t, &stubFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggest?q=P", nil)
	resp, err := f.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var out []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no suggestions for a 1-char query, got %d", len(out))
	}
}

func TestForecastActiveDetail(t *testing.T) {
	f := newTestApp(t, &stubFetcher{})

	postJSON(t, f, "/api/v1/search", map[string]any{"city": "Paris"})

	_, model := postJSON(t, f, "/api/v1/forecast/active", map[string]any{"index": 0})
	if model.Detail == "" {
		t.Fatal("expected a detail summary for the active day")
	}
	if len(model.Cards) == 0 || !model.Cards[0].Active {
		t.Error("expected first card marked active")
	}
}

func TestReset(t *testing.T) {
	f := newTestApp(t, &stubFetcher{})

	postJSON(t, f, "/api/v1/search", map[string]any{"city": "Paris"})

	_, model := postJSON(t, f, "/api/v1/reset", map[string]any{})
	if model.Phase != view.PhaseIdle {
		t.Fatalf("expected idle after reset, got %s", model.Phase)
	}
	if model.ShowCard || model.Error != "" {
		t.Error("expected a clean home state")
	}
}
