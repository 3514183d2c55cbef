package view

import (
	"fmt"
	"time"

	"github.com/olegn/skycast/internal/geo"
	"github.com/olegn/skycast/internal/units"
)

// ForecastCard is one clickable entry in the forecast strip.
type ForecastCard struct {
	Day         string `json:"day"`
	Temperature string `json:"temperature"`
	Glyph       string `json:"glyph"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// RenderModel is everything a front end needs to draw the widget. It is
// derived from State and plain data: no UI toolkit, no transport.
type RenderModel struct {
	Phase            Phase          `json:"phase"`
	Title            string         `json:"title,omitempty"`
	Temperature      string         `json:"temperature,omitempty"`
	FeelsLike        string         `json:"feelsLike,omitempty"`
	Humidity         string         `json:"humidity,omitempty"`
	Description      string         `json:"description,omitempty"`
	Glyph            string         `json:"glyph,omitempty"`
	Icon             string         `json:"icon,omitempty"`
	Gradient         string         `json:"gradient,omitempty"`
	LocalTime        string         `json:"localTime,omitempty"`
	Unit             units.Unit     `json:"unit"`
	Error            string         `json:"error,omitempty"`
	Cards            []ForecastCard `json:"forecast,omitempty"`
	Detail           string         `json:"detail,omitempty"`
	ShowCard         bool           `json:"showCard"`
	ShowForecast     bool           `json:"showForecast"`
	ShowUnitSelector bool           `json:"showUnitSelector"`
	ShowLoading      bool           `json:"showLoading"`
	FavoriteEnabled  bool           `json:"favoriteEnabled"`
	FavoriteActive   bool           `json:"favoriteActive"`
}

// Render projects the state onto a render model. now feeds the local-time
// line; passing it in keeps Render deterministic for tests.
func Render(s State, now time.Time) RenderModel {
	m := RenderModel{
		Phase: s.Phase,
		Unit:  s.Unit,
	}

	switch s.Phase {
	case PhaseLoading:
		m.ShowLoading = true

	case PhaseError:
		m.Error = s.ErrorMessage

	case PhaseDisplayed:
		snap := s.Snapshot

		m.Title = title(s)
		m.Temperature = units.Format(snap.TempK, s.Unit)
		m.FeelsLike = "Feels like " + units.Format(snap.FeelsLikeK, s.Unit)
		m.Humidity = fmt.Sprintf("Humidity: %d%%", snap.Humidity)
		m.Description = snap.Description
		m.Glyph = Glyph(snap.ConditionID)
		m.Icon = snap.Icon
		m.Gradient = Gradient(snap.ConditionID)
		m.LocalTime = snap.LocalTime(now).Format("Mon 15:04")
		m.ShowCard = true
		m.ShowUnitSelector = true
		m.FavoriteEnabled = true
		m.FavoriteActive = s.Favorite

		offset := time.Duration(snap.TimezoneOffset) * time.Second
		for i, e := range s.Forecast {
			local := time.Unix(e.Timestamp, 0).UTC().Add(offset)
			m.Cards = append(m.Cards, ForecastCard{
				Day:         local.Format("Monday"),
				Temperature: units.Format(e.TempK, s.Unit),
				Glyph:       Glyph(e.ConditionID),
				Icon:        e.Icon,
				Description: e.Description,
				Active:      i == s.ActiveDay,
			})
		}
		// An empty reduction hides the strip; it is not an error.
		m.ShowForecast = len(m.Cards) > 0

		if s.ActiveDay >= 0 && s.ActiveDay < len(s.Forecast) {
			e := s.Forecast[s.ActiveDay]
			local := time.Unix(e.Timestamp, 0).UTC().Add(offset)
			m.Detail = fmt.Sprintf("%s: %s, %s",
				local.Format("Monday"), e.Description, units.Format(e.TempK, s.Unit))
		}
	}

	return m
}

// title prefers the search descriptor's label, then falls back to the
// API-reported city plus its resolved country name.
func title(s State) string {
	if s.Descriptor.Label != "" {
		return s.Descriptor.Label
	}
	if s.Snapshot.City == "" {
		return s.Descriptor.Name
	}
	if s.Snapshot.Country != "" {
		return s.Snapshot.City + ", " + geo.CountryName(s.Snapshot.Country)
	}
	return s.Snapshot.City
}

// Gradient maps an upstream weather condition id to the card background.
func Gradient(conditionID int) string {
	switch {
	case conditionID == 800:
		// Clear sky
		return "linear-gradient(180deg, hsl(210, 100%, 70%), hsl(40, 100%, 75%))"
	case conditionID >= 200 && conditionID < 600:
		// Thunderstorm, drizzle, rain
		return "linear-gradient(180deg, hsl(210, 50%, 40%), hsl(210, 50%, 20%))"
	case conditionID >= 600 && conditionID < 700:
		// Snow
		return "linear-gradient(180deg, hsl(0, 0%, 100%), hsl(0, 0%, 80%))"
	case conditionID >= 700 && conditionID < 800:
		// Fog, mist, haze
		return "linear-gradient(180deg, hsl(210, 10%, 75%), hsl(40, 10%, 65%))"
	case conditionID >= 801 && conditionID < 810:
		// Clouds
		return "linear-gradient(180deg, hsl(210, 20%, 80%), hsl(0, 0%, 70%))"
	default:
		return "linear-gradient(180deg, hsl(210, 100%, 75%), hsl(40, 100%, 75%))"
	}
}

// Glyph maps an upstream weather condition id to its display glyph.
func Glyph(conditionID int) string {
	switch {
	case conditionID >= 200 && conditionID < 300:
		return "⛈"
	case conditionID >= 300 && conditionID < 400:
		return "🌧"
	case conditionID >= 500 && conditionID < 600:
		return "🌧"
	case conditionID >= 600 && conditionID < 700:
		return "❄"
	case conditionID >= 700 && conditionID < 800:
		return "🌫"
	case conditionID == 800:
		return "☀"
	case conditionID >= 801 && conditionID < 810:
		return "☁"
	default:
		return "❓"
	}
}
