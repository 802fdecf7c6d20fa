package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// cacheKey rounds coordinates to five decimal places (~1m) so repeated runs
// over the same record hit the cache regardless of float formatting noise.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lon)
}

// Cache is a SQLite-backed geocode cache. Non-matches are cached too, so a
// known-unresolvable location doesn't cost a network call on every run.
type Cache struct {
	db *sql.DB
}

// NewCache opens (and if needed initializes) the cache database at path.
func NewCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "geocode: exec %s", pragma)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	coord_key    TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	country      TEXT NOT NULL DEFAULT '',
	state        TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	matched      INTEGER NOT NULL,
	cached_at    DATETIME NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "geocode: migrate cache")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Get returns the cached result for a coordinate pair, or nil on a miss.
func (c *Cache) Get(ctx context.Context, lat, lon float64) (*Result, error) {
	key := cacheKey(lat, lon)
	row := c.db.QueryRowContext(ctx,
		`SELECT display_name, country, state, city, matched FROM geocode_cache WHERE coord_key = ?`, key)

	var r Result
	var matched int
	if err := row.Scan(&r.DisplayName, &r.Country, &r.State, &r.City, &matched); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "geocode: cache get %s", key)
	}
	r.Matched = matched != 0
	zap.L().Debug("geocode cache hit", zap.String("key", key), zap.Bool("matched", r.Matched))
	return &r, nil
}

// Put stores a result (match or non-match) for a coordinate pair.
func (c *Cache) Put(ctx context.Context, lat, lon float64, r *Result) error {
	matched := 0
	if r.Matched {
		matched = 1
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (coord_key, display_name, country, state, city, matched, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (coord_key) DO UPDATE SET
			display_name = excluded.display_name,
			country = excluded.country,
			state = excluded.state,
			city = excluded.city,
			matched = excluded.matched,
			cached_at = excluded.cached_at`,
		cacheKey(lat, lon), r.DisplayName, r.Country, r.State, r.City, matched, time.Now().UTC(),
	)
	return eris.Wrap(err, "geocode: cache put")
}
