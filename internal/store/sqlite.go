package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/publicartatlas/artimport/internal/model"
	"github.com/publicartatlas/artimport/internal/scorer"
)

// SQLiteCorpus implements Corpus against a local SQLite snapshot of the
// artwork/artist corpus, using modernc.org/sqlite.
type SQLiteCorpus struct {
	db *sql.DB
}

// NewSQLite opens the corpus database at the given path in read-friendly
// WAL mode.
func NewSQLite(dsn string) (*SQLiteCorpus, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open corpus")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteCorpus{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS artworks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	artists     TEXT NOT NULL DEFAULT '[]',
	tags        TEXT NOT NULL DEFAULT '{}',
	external_id TEXT NOT NULL DEFAULT '',
	registry_id TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS artists (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	name_normalized TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_artworks_lat_lon ON artworks(lat, lon);
CREATE INDEX IF NOT EXISTS idx_artworks_external_id ON artworks(external_id);
CREATE INDEX IF NOT EXISTS idx_artists_name_normalized ON artists(name_normalized);
`

// Migrate creates the corpus tables if missing. Useful for tests and for
// building a local snapshot; production snapshots arrive pre-populated.
func (s *SQLiteCorpus) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return eris.Wrap(err, "sqlite: migrate corpus")
}

func (s *SQLiteCorpus) Close() error {
	return s.db.Close()
}

func (s *SQLiteCorpus) ArtworksInBoundingBox(ctx context.Context, box BoundingBox, limit int) ([]model.CandidateEntity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, lat, lon, artists, tags, external_id, registry_id, created_at
		 FROM artworks
		 WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
		 LIMIT ?`,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: bounding box query")
	}
	defer rows.Close()

	var out []model.CandidateEntity
	for rows.Next() {
		var c model.CandidateEntity
		var artistsJSON, tagsJSON string
		if err := rows.Scan(&c.ID, &c.Title, &c.Lat, &c.Lon, &artistsJSON, &tagsJSON,
			&c.ExternalID, &c.RegistryID, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan artwork")
		}
		if err := json.Unmarshal([]byte(artistsJSON), &c.Artists); err != nil {
			return nil, eris.Wrapf(err, "sqlite: artwork %s artists", c.ID)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &c.Tags); err != nil {
			return nil, eris.Wrapf(err, "sqlite: artwork %s tags", c.ID)
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: bounding box rows")
}

func (s *SQLiteCorpus) SearchArtistsByName(ctx context.Context, name string, limit int) ([]model.ArtistCandidate, error) {
	normalized := scorer.Normalize(name)
	if normalized == "" {
		return nil, nil
	}

	// Coarse token match: any artist whose normalized name contains any
	// token of the query. The resolver applies precise fuzzy scoring.
	tokens := strings.Fields(normalized)
	conds := make([]string, len(tokens))
	args := make([]any, 0, len(tokens)+1)
	for i, tok := range tokens {
		conds[i] = "name_normalized LIKE ?"
		args = append(args, "%"+tok+"%")
	}
	args = append(args, limit)

	query := `SELECT id, name, created_at FROM artists WHERE ` +
		strings.Join(conds, " OR ") + ` ORDER BY created_at LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: artist name query")
	}
	defer rows.Close()

	var out []model.ArtistCandidate
	for rows.Next() {
		var a model.ArtistCandidate
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan artist")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: artist rows")
}

// InsertArtwork adds one artwork to a local corpus snapshot. Used by tests
// and the snapshot-building tooling, not by the import run itself.
func (s *SQLiteCorpus) InsertArtwork(ctx context.Context, c model.CandidateEntity) error {
	artistsJSON, err := json.Marshal(c.Artists)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal artists")
	}
	tagsJSON, err := json.Marshal(c.Tags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artworks (id, title, lat, lon, artists, tags, external_id, registry_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Lat, c.Lon, string(artistsJSON), string(tagsJSON),
		c.ExternalID, c.RegistryID, c.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert artwork %s", c.ID)
}

// InsertArtist adds one artist to a local corpus snapshot.
func (s *SQLiteCorpus) InsertArtist(ctx context.Context, a model.ArtistCandidate) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artists (id, name, name_normalized, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, scorer.Normalize(a.Name), a.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert artist %s", a.ID)
}
