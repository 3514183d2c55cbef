package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.Client(), "test-key")
	c.baseURL = srv.URL
	return c, srv
}

func TestFetchCurrent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "Paris" {
			t.Errorf("expected q=Paris, got %q", got)
		}
		if got := r.URL.Query().Get("appid"); got != "test-key" {
			t.Errorf("expected appid=test-key, got %q", got)
		}

		fmt.Fprint(w, `{
			"name": "Paris",
			"main": {"temp": 290.0, "feels_like": 288.5, "humidity": 60},
			"weather": [{"id": 800, "description": "clear sky", "icon": "01d"}],
			"sys": {"country": "FR", "sunrise": 1700000000, "sunset": 1700030000},
			"timezone": 3600
		}`)
	})

	c, _ := newTestClient(t, handler)

	snap, err := c.FetchCurrent(context.Background(), Descriptor{Mode: ModeCity, Name: "Paris"})
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}

	if snap.City != "Paris" || snap.Country != "FR" {
		t.Errorf("unexpected location %s,%s", snap.City, snap.Country)
	}
	if snap.TempK != 290.0 || snap.FeelsLikeK != 288.5 {
		t.Errorf("unexpected temps %v/%v", snap.TempK, snap.FeelsLikeK)
	}
	if snap.Humidity != 60 {
		t.Errorf("unexpected humidity %d", snap.Humidity)
	}
	if snap.ConditionID != 800 || snap.Description != "clear sky" || snap.Icon != "01d" {
		t.Errorf("unexpected condition %d %q %q", snap.ConditionID, snap.Description, snap.Icon)
	}
	if snap.TimezoneOffset != 3600 {
		t.Errorf("unexpected timezone offset %d", snap.TimezoneOffset)
	}
}

func TestFetchCurrentByCoords(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("lat"); got == "" {
			t.Error("expected lat parameter")
		}
		if got := r.URL.Query().Get("lon"); got == "" {
			t.Error("expected lon parameter")
		}
		if got := r.URL.Query().Get("q"); got != "" {
			t.Errorf("unexpected q parameter %q", got)
		}
		fmt.Fprint(w, `{"name": "Paris", "main": {"temp": 290.0}, "weather": [], "sys": {}, "timezone": 0}`)
	})

	c, _ := newTestClient(t, handler)

	_, err := c.FetchCurrent(context.Background(), Descriptor{Mode: ModeCoords, Lat: 48.8566, Lon: 2.3522})
	if err != nil {
		t.Fatalf("FetchCurrent failed: %v", err)
	}
}

func TestFetchCurrentNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"cod": "404", "message": "city not found"}`)
	})

	c, _ := newTestClient(t, handler)

	_, err := c.FetchCurrent(context.Background(), Descriptor{Mode: ModeCity, Name: "Nowhereville"})
	if !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
	if msg := UserMessage(err); msg != "Location not found." {
		t.Errorf("unexpected user message %q", msg)
	}
}

func TestFetchForecastFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c, _ := newTestClient(t, handler)

	_, err := c.FetchForecast(context.Background(), Descriptor{Mode: ModeCity, Name: "Paris"})
	if !errors.Is(err, ErrForecastUnavailable) {
		t.Fatalf("expected ErrForecastUnavailable, got %v", err)
	}
	if msg := UserMessage(err); msg != "Could not load forecast." {
		t.Errorf("unexpected user message %q", msg)
	}
}

// forecastFixture builds a raw 3-hour series of the given length starting at
// start, with the given city timezone offset in seconds.
func forecastFixture(start time.Time, steps, offset int) []byte {
	type item struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			ID          int    `json:"id"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
	}

	var payload struct {
		List []item `json:"list"`
		City struct {
			Timezone int `json:"timezone"`
		} `json:"city"`
	}
	payload.City.Timezone = offset

	for i := 0; i < steps; i++ {
		var it item
		it.Dt = start.Add(time.Duration(i) * 3 * time.Hour).Unix()
		it.Main.Temp = 280.0 + float64(i)
		it.Weather = append(it.Weather, struct {
			ID          int    `json:"id"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		}{ID: 500, Description: "light rain", Icon: "10d"})
		payload.List = append(payload.List, it)
	}

	data, _ := json.Marshal(payload)
	return data
}

func TestFetchForecastMiddayReduction(t *testing.T) {
	// Six days of 3-hour steps starting at midnight UTC, zero offset.
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	body := forecastFixture(start, 48, 0)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write(body)
	})

	c, _ := newTestClient(t, handler)

	entries, err := c.FetchForecast(context.Background(), Descriptor{Mode: ModeCity, Name: "Paris"})
	if err != nil {
		t.Fatalf("FetchForecast failed: %v", err)
	}

	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		local := time.Unix(e.Timestamp, 0).UTC()
		if local.Hour() != 12 || local.Minute() != 0 {
			t.Errorf("entry %d local time %s is not midday", i, local)
		}
		if i > 0 && entries[i-1].Timestamp >= e.Timestamp {
			t.Errorf("entries out of order at %d", i)
		}
	}
}

func TestFetchForecastRespectsCityOffset(t *testing.T) {
	// UTC+2 with samples at 01:00, 04:00, 07:00, 10:00, ... UTC: the midday
	// slot falls on the 10:00 UTC sample.
	start := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	body := forecastFixture(start, 16, 2*3600)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	})

	c, _ := newTestClient(t, handler)

	entries, err := c.FetchForecast(context.Background(), Descriptor{Mode: ModeCity, Name: "Paris"})
	if err != nil {
		t.Fatalf("FetchForecast failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one midday entry")
	}
	for _, e := range entries {
		utc := time.Unix(e.Timestamp, 0).UTC()
		if utc.Hour() != 10 {
			t.Errorf("expected 10:00 UTC samples for UTC+2, got %s", utc)
		}
	}
}

func TestFetchForecastNoMiddaySlots(t *testing.T) {
	// Samples at 01:00, 04:00, ... never hit 12:00 local.
	start := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	body := forecastFixture(start, 8, 0)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	})

	c, _ := newTestClient(t, handler)

	entries, err := c.FetchForecast(context.Background(), Descriptor{Mode: ModeCity, Name: "Paris"})
	if err != nil {
		t.Fatalf("expected empty forecast, not an error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
