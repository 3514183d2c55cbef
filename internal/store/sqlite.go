package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/olegn/skycast/internal/weather"
)

// DefaultMaxFavorites caps the favourites list.
const DefaultMaxFavorites = 12

// SQLiteStore persists the last search, the favourites list, and a TTL cache
// of search results in a local SQLite file. It implements weather.Store.
//
// Persistence here is an optimization, not a correctness requirement: every
// method returns an explicit error, and callers are expected to log and
// carry on.
type SQLiteStore struct {
	db           *sql.DB
	maxFavorites int
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, maxFavorites int) (*SQLiteStore, error) {
	if maxFavorites <= 0 {
		maxFavorites = DefaultMaxFavorites
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS last_search (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS favorites (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		position INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS weather_cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, maxFavorites: maxFavorites}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveLastSearch overwrites the single last-search slot.
func (s *SQLiteStore) SaveLastSearch(d weather.Descriptor) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO last_search(id, payload, updated_at) VALUES(1, ?, ?)`,
		string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LoadLastSearch reads the last-search slot; ok is false when it is empty.
func (s *SQLiteStore) LoadLastSearch() (weather.Descriptor, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM last_search WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Descriptor{}, false, nil
	}
	if err != nil {
		return weather.Descriptor{}, false, err
	}

	var d weather.Descriptor
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return weather.Descriptor{}, false, err
	}
	return d, true, nil
}

// ClearLastSearch empties the last-search slot.
func (s *SQLiteStore) ClearLastSearch() error {
	_, err := s.db.Exec(`DELETE FROM last_search`)
	return err
}

// Favorites lists saved favourites, most recent first.
func (s *SQLiteStore) Favorites() ([]weather.Descriptor, error) {
	rows, err := s.db.Query(`SELECT payload FROM favorites ORDER BY position DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []weather.Descriptor
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var d weather.Descriptor
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AddFavorite saves a favourite under its normalized key. Adding an entry
// whose key is already present is a no-op; added reports whether anything
// changed. The list is trimmed to the newest maxFavorites entries.
func (s *SQLiteStore) AddFavorite(d weather.Descriptor) (added bool, err error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM favorites WHERE key = ?`, d.Key()).Scan(&exists); err != nil {
		return false, err
	}
	if exists > 0 {
		return false, nil
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return false, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var next int64
	if err = tx.QueryRow(`SELECT COALESCE(MAX(position), 0) + 1 FROM favorites`).Scan(&next); err != nil {
		return false, err
	}
	if _, err = tx.Exec(`INSERT INTO favorites(key, payload, position) VALUES(?, ?, ?)`,
		d.Key(), string(payload), next); err != nil {
		return false, err
	}
	if _, err = tx.Exec(`DELETE FROM favorites WHERE key NOT IN (
		SELECT key FROM favorites ORDER BY position DESC LIMIT ?
	)`, s.maxFavorites); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// SaveFavorites replaces the whole favourites list. Entries arrive most
// recent first and are truncated to the cap; duplicate keys keep the most
// recent entry.
func (s *SQLiteStore) SaveFavorites(favs []weather.Descriptor) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM favorites`); err != nil {
		return err
	}

	seen := make(map[string]bool, len(favs))
	position := int64(len(favs))
	for _, d := range favs {
		if seen[d.Key()] {
			continue
		}
		seen[d.Key()] = true

		var payload []byte
		if payload, err = json.Marshal(d); err != nil {
			return err
		}
		if _, err = tx.Exec(`INSERT INTO favorites(key, payload, position) VALUES(?, ?, ?)`,
			d.Key(), string(payload), position); err != nil {
			return err
		}
		position--

		if len(seen) == s.maxFavorites {
			break
		}
	}

	return tx.Commit()
}

// RemoveFavorite deletes the favourite with the given normalized key.
// Removing an absent key is a no-op.
func (s *SQLiteStore) RemoveFavorite(key string) error {
	_, err := s.db.Exec(`DELETE FROM favorites WHERE key = ?`, key)
	return err
}

// CachedResult returns the unexpired cached result for a normalized key.
func (s *SQLiteStore) CachedResult(key string, now time.Time) (weather.SearchResult, bool, error) {
	var payload, expires string
	err := s.db.QueryRow(`SELECT payload, expires_at FROM weather_cache WHERE key = ?`, key).
		Scan(&payload, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.SearchResult{}, false, nil
	}
	if err != nil {
		return weather.SearchResult{}, false, err
	}

	expiresAt, err := time.Parse(time.RFC3339, expires)
	if err != nil || now.After(expiresAt) {
		return weather.SearchResult{}, false, nil
	}

	var res weather.SearchResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return weather.SearchResult{}, false, err
	}
	return res, true, nil
}

// SaveResult caches a search result under its descriptor's normalized key.
func (s *SQLiteStore) SaveResult(res weather.SearchResult, expiresAt time.Time) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO weather_cache(key, payload, expires_at) VALUES(?, ?, ?)`,
		res.Descriptor.Key(), string(payload), expiresAt.UTC().Format(time.RFC3339),
	)
	return err
}

// PruneExpired removes cache rows whose TTL has passed and reports how many
// were deleted.
func (s *SQLiteStore) PruneExpired(now time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM weather_cache WHERE expires_at < ?`,
		now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
