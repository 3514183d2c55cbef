package httpapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/olegn/skycast/internal/geo"
	"github.com/olegn/skycast/internal/units"
	"github.com/olegn/skycast/internal/view"
	"github.com/olegn/skycast/internal/weather"
)

var validate = validator.New()

// App owns the single widget state and binds the pure pipeline to HTTP.
// Handlers mutate the state under a mutex; every state-changing route
// responds with the resulting render model so the front end just redraws.
type App struct {
	mu       sync.Mutex
	state    view.State
	service  *weather.Service
	resolver *geo.Resolver
	suggest  *geo.Debouncer
}

// NewApp wires the widget services. quiet is the suggestion debounce period;
// zero selects the default.
func NewApp(service *weather.Service, resolver *geo.Resolver, quiet time.Duration) *App {
	return &App{
		state:    view.NewState(),
		service:  service,
		resolver: resolver,
		suggest:  geo.NewDebouncer(quiet, resolver.Suggest),
	}
}

// RestoreLastSearch replays the persisted last search, if any, so the widget
// comes back up showing what it showed last time.
func (a *App) RestoreLastSearch(ctx context.Context) {
	d, ok := a.service.LastSearch()
	if !ok {
		return
	}
	a.runSearch(ctx, func(ctx context.Context) (weather.SearchResult, error) {
		return a.service.Search(ctx, d)
	})
}

// runSearch drives one full pipeline pass: Loading in, then either Displayed
// or ErrorShown, with stale completions discarded by generation.
func (a *App) runSearch(ctx context.Context, do func(context.Context) (weather.SearchResult, error)) view.RenderModel {
	a.mu.Lock()
	st, gen := view.BeginSearch(a.state)
	a.state = st
	a.mu.Unlock()

	res, err := do(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = view.FailSearch(a.state, gen, weather.UserMessage(err))
	} else {
		a.state = view.CompleteSearch(a.state, gen, res, a.service.IsFavorite(res.Descriptor))
	}
	return view.Render(a.state, time.Now())
}

func (a *App) render() view.RenderModel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return view.Render(a.state, time.Now())
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(f *fiber.App, a *App) {
	v1 := f.Group("/api/v1")

	v1.Get("/state", a.handleState)
	v1.Post("/search", a.handleSearch)
	v1.Get("/suggest", a.handleSuggest)
	v1.Post("/unit", a.handleUnit)
	v1.Post("/forecast/active", a.handleForecastActive)
	v1.Get("/favorites", a.handleFavorites)
	v1.Post("/favorites/toggle", a.handleFavoriteToggle)
	v1.Post("/favorites/open", a.handleFavoriteOpen)
	v1.Post("/reset", a.handleReset)
}

func (a *App) handleState(c *fiber.Ctx) error {
	return c.JSON(a.render())
}

// searchRequest accepts either a free-text city, or device/candidate
// coordinates. A candidate selection carries all of name, coordinates and
// its composed label.
type searchRequest struct {
	City  string   `json:"city"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Label string   `json:"label"`
}

func (a *App) handleSearch(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon must be provided together")
	}

	var d weather.Descriptor
	if req.Lat != nil && req.Lon != nil {
		d = weather.Descriptor{
			Mode:  weather.ModeCoords,
			Lat:   *req.Lat,
			Lon:   *req.Lon,
			Name:  strings.TrimSpace(req.City),
			Label: req.Label,
		}
		if d.Label == "" {
			if name, ok := a.resolver.ReverseName(d.Lat, d.Lon); ok {
				d.Label = name
			}
		}
	} else {
		d = weather.Descriptor{
			Mode:  weather.ModeCity,
			Name:  strings.TrimSpace(req.City),
			Label: req.Label,
		}
	}

	// Blank input still runs the pipeline so the widget shows the
	// EmptyInput message; the service guarantees no network call happens.
	model := a.runSearch(c.UserContext(), func(ctx context.Context) (weather.SearchResult, error) {
		return a.service.Search(ctx, d)
	})
	return c.JSON(model)
}

// suggestion is one row of the autocomplete dropdown.
type suggestion struct {
	geo.Candidate
	Label string `json:"label"`
}

func (a *App) handleSuggest(c *fiber.Ctx) error {
	// The debouncer makes rapid keystrokes supersede each other; a
	// superseded request just answers with nothing.
	candidates := a.suggest.Await(c.UserContext(), c.Query("q"))

	out := make([]suggestion, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, suggestion{Candidate: cand, Label: cand.Label()})
	}
	return c.JSON(out)
}

type unitRequest struct {
	Unit string `json:"unit" validate:"required"`
}

func (a *App) handleUnit(c *fiber.Ctx) error {
	var req unitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !units.Valid(req.Unit) {
		return fiber.NewError(fiber.StatusBadRequest, "unknown unit")
	}

	a.mu.Lock()
	a.state = view.SetUnit(a.state, units.Parse(req.Unit))
	model := view.Render(a.state, time.Now())
	a.mu.Unlock()

	return c.JSON(model)
}

type forecastActiveRequest struct {
	Index int `json:"index"`
}

func (a *App) handleForecastActive(c *fiber.Ctx) error {
	var req forecastActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	a.mu.Lock()
	a.state = view.SelectDay(a.state, req.Index)
	model := view.Render(a.state, time.Now())
	a.mu.Unlock()

	return c.JSON(model)
}

// favoriteEntry is one row of the favourites strip.
type favoriteEntry struct {
	Key   string             `json:"key"`
	Label string             `json:"label"`
	Mode  weather.SearchMode `json:"mode"`
}

func (a *App) handleFavorites(c *fiber.Ctx) error {
	favs := a.service.Favorites()

	out := make([]favoriteEntry, 0, len(favs))
	for _, f := range favs {
		label := f.Label
		if label == "" {
			label = f.Name
		}
		out = append(out, favoriteEntry{Key: f.Key(), Label: label, Mode: f.Mode})
	}
	return c.JSON(out)
}

func (a *App) handleFavoriteToggle(c *fiber.Ctx) error {
	a.mu.Lock()
	if a.state.Phase != view.PhaseDisplayed {
		a.mu.Unlock()
		return fiber.NewError(fiber.StatusConflict, "no active search to favorite")
	}
	d := a.state.Descriptor
	a.mu.Unlock()

	active := a.service.ToggleFavorite(d)

	a.mu.Lock()
	a.state = view.SetFavorite(a.state, active)
	model := view.Render(a.state, time.Now())
	a.mu.Unlock()

	return c.JSON(model)
}

type favoriteOpenRequest struct {
	Key string `json:"key" validate:"required"`
}

func (a *App) handleFavoriteOpen(c *fiber.Ctx) error {
	var req favoriteOpenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	model := a.runSearch(c.UserContext(), func(ctx context.Context) (weather.SearchResult, error) {
		return a.service.OpenFavorite(ctx, req.Key)
	})
	return c.JSON(model)
}

func (a *App) handleReset(c *fiber.Ctx) error {
	a.service.Reset()

	a.mu.Lock()
	a.state = view.Reset(a.state)
	model := view.Render(a.state, time.Now())
	a.mu.Unlock()

	return c.JSON(model)
}
