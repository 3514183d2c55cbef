package weather

import (
	"fmt"
	"strings"
	"time"
)

// SearchMode says how a search identifies its place: by free-text city name
// or by coordinates.
type SearchMode string

const (
	ModeCity   SearchMode = "city"
	ModeCoords SearchMode = "coords"
)

// Descriptor records how a search was invoked. It doubles as the identity of
// a favourite and of the persisted last search.
type Descriptor struct {
	Mode  SearchMode `json:"mode"`
	Name  string     `json:"name,omitempty"`
	Lat   float64    `json:"lat,omitempty"`
	Lon   float64    `json:"lon,omitempty"`
	Label string     `json:"label,omitempty"`
}

// Key returns the normalized identity used to deduplicate favourites and to
// index the weather cache. Coordinate searches key on lat/lon rounded to
// 4 decimal places; name searches on the lower-cased trimmed name.
func (d Descriptor) Key() string {
	if d.Mode == ModeCoords {
		return fmt.Sprintf("%.4f,%.4f", d.Lat, d.Lon)
	}
	return strings.ToLower(strings.TrimSpace(d.Name))
}

// Snapshot is the current-conditions view of one location at fetch time.
// Temperatures are always Kelvin; a display unit is applied only at render
// time, which is what makes unit switching refetch-free.
type Snapshot struct {
	City           string  `json:"city"`
	Country        string  `json:"country"` // ISO code as reported upstream
	TempK          float64 `json:"tempK"`
	FeelsLikeK     float64 `json:"feelsLikeK"`
	Humidity       int     `json:"humidityPercent"`
	Description    string  `json:"description"`
	ConditionID    int     `json:"conditionId"`
	Icon           string  `json:"icon"`
	Sunrise        int64   `json:"sunrise"`        // UTC epoch seconds
	Sunset         int64   `json:"sunset"`         // UTC epoch seconds
	TimezoneOffset int     `json:"timezoneOffset"` // seconds east of UTC
}

// LocalTime converts an instant to the snapshot location's local clock.
func (s Snapshot) LocalTime(now time.Time) time.Time {
	return now.UTC().Add(time.Duration(s.TimezoneOffset) * time.Second)
}

// ForecastEntry is one midday sample of the upstream 3-hour forecast series.
type ForecastEntry struct {
	Timestamp   int64   `json:"timestamp"` // UTC epoch seconds
	TempK       float64 `json:"tempK"`
	ConditionID int     `json:"conditionId"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
}

// SearchResult bundles everything a successful search produced.
type SearchResult struct {
	Descriptor Descriptor      `json:"descriptor"`
	Snapshot   Snapshot        `json:"snapshot"`
	Forecast   []ForecastEntry `json:"forecast"`
	FetchedAt  time.Time       `json:"fetchedAt"`
}
