package weather

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Store is the contract the local cache store must satisfy. Persistence is
// best-effort: the service logs store errors and carries on, they never
// reach the user.
type Store interface {
	SaveLastSearch(d Descriptor) error
	LoadLastSearch() (Descriptor, bool, error)
	ClearLastSearch() error

	Favorites() ([]Descriptor, error)
	AddFavorite(d Descriptor) (bool, error)
	RemoveFavorite(key string) error

	CachedResult(key string, now time.Time) (SearchResult, bool, error)
	SaveResult(res SearchResult, expiresAt time.Time) error
}

// Fetcher is the slice of Client the service needs; tests substitute fakes.
type Fetcher interface {
	FetchCurrent(ctx context.Context, d Descriptor) (Snapshot, error)
	FetchForecast(ctx context.Context, d Descriptor) ([]ForecastEntry, error)
}

// Service runs the search pipeline: both lookups concurrently, fail-fast
// join, then best-effort persistence of the result and the last search.
type Service struct {
	client   Fetcher
	store    Store
	cacheTTL time.Duration
}

// NewService creates a Service. A cacheTTL of zero disables result caching.
func NewService(client Fetcher, store Store, cacheTTL time.Duration) *Service {
	return &Service{
		client:   client,
		store:    store,
		cacheTTL: cacheTTL,
	}
}

// Search resolves a descriptor to a full result. A fresh cached result for
// the same normalized key short-circuits the network entirely, which is how
// re-opening a favourite stays cheap.
func (s *Service) Search(ctx context.Context, d Descriptor) (SearchResult, error) {
	if d.Mode == ModeCity && d.Key() == "" {
		return SearchResult{}, ErrEmptyInput
	}

	now := time.Now().UTC()

	if s.cacheTTL > 0 {
		if cached, ok, err := s.store.CachedResult(d.Key(), now); err != nil {
			log.Printf("weather: cache read failed for %s: %v", d.Key(), err)
		} else if ok {
			cached.Descriptor = d
			s.persist(cached)
			return cached, nil
		}
	}

	var (
		wg       sync.WaitGroup
		snap     Snapshot
		forecast []ForecastEntry
		curErr   error
		fcErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		snap, curErr = s.client.FetchCurrent(ctx, d)
	}()
	go func() {
		defer wg.Done()
		forecast, fcErr = s.client.FetchForecast(ctx, d)
	}()
	wg.Wait()

	// The search fails as a whole if either lookup failed; the
	// current-conditions failure takes precedence for the message.
	if curErr != nil {
		return SearchResult{}, curErr
	}
	if fcErr != nil {
		return SearchResult{}, fcErr
	}

	res := SearchResult{
		Descriptor: d,
		Snapshot:   snap,
		Forecast:   forecast,
		FetchedAt:  now,
	}

	s.persist(res)
	return res, nil
}

// persist writes the last search and the cache slot, logging failures.
func (s *Service) persist(res SearchResult) {
	if err := s.store.SaveLastSearch(res.Descriptor); err != nil {
		log.Printf("weather: failed to persist last search: %v", err)
	}
	if s.cacheTTL > 0 {
		if err := s.store.SaveResult(res, res.FetchedAt.Add(s.cacheTTL)); err != nil {
			log.Printf("weather: failed to cache result for %s: %v", res.Descriptor.Key(), err)
		}
	}
}

// LastSearch restores the persisted last search, if any.
func (s *Service) LastSearch() (Descriptor, bool) {
	d, ok, err := s.store.LoadLastSearch()
	if err != nil {
		log.Printf("weather: failed to load last search: %v", err)
		return Descriptor{}, false
	}
	return d, ok
}

// Reset clears the persisted last search.
func (s *Service) Reset() {
	if err := s.store.ClearLastSearch(); err != nil {
		log.Printf("weather: failed to clear last search: %v", err)
	}
}

// Favorites lists saved favourites, most recent first.
func (s *Service) Favorites() []Descriptor {
	favs, err := s.store.Favorites()
	if err != nil {
		log.Printf("weather: failed to load favorites: %v", err)
		return nil
	}
	return favs
}

// ToggleFavorite adds the descriptor when absent and removes it when
// present. It reports the resulting membership for the button state.
func (s *Service) ToggleFavorite(d Descriptor) bool {
	favs, err := s.store.Favorites()
	if err != nil {
		log.Printf("weather: failed to load favorites: %v", err)
		return false
	}

	for _, f := range favs {
		if f.Key() == d.Key() {
			if err := s.store.RemoveFavorite(d.Key()); err != nil {
				log.Printf("weather: failed to remove favorite %s: %v", d.Key(), err)
				return true
			}
			return false
		}
	}

	if _, err := s.store.AddFavorite(d); err != nil {
		log.Printf("weather: failed to add favorite %s: %v", d.Key(), err)
		return false
	}
	return true
}

// IsFavorite reports whether a favourite-equivalent of d is saved.
func (s *Service) IsFavorite(d Descriptor) bool {
	for _, f := range s.Favorites() {
		if f.Key() == d.Key() {
			return true
		}
	}
	return false
}

// OpenFavorite replays a stored favourite through the full search pipeline
// using its original mode.
func (s *Service) OpenFavorite(ctx context.Context, key string) (SearchResult, error) {
	for _, f := range s.Favorites() {
		if f.Key() == key {
			return s.Search(ctx, f)
		}
	}
	return SearchResult{}, fmt.Errorf("%w: unknown favorite %q", ErrLocationNotFound, key)
}
