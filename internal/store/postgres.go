package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/publicartatlas/artimport/internal/db"
	"github.com/publicartatlas/artimport/internal/model"
)

// PostgresCorpus implements Corpus against the production artwork database
// using pgxpool. Artist search relies on pg_trgm similarity.
type PostgresCorpus struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresCorpus with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresCorpus, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresCorpus{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresCorpus {
	return &PostgresCorpus{pool: pool}
}

func (s *PostgresCorpus) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresCorpus) ArtworksInBoundingBox(ctx context.Context, box BoundingBox, limit int) ([]model.CandidateEntity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, lat, lon, artists, tags, external_id, registry_id, created_at
		 FROM artworks
		 WHERE lat BETWEEN $1 AND $2 AND lon BETWEEN $3 AND $4
		 LIMIT $5`,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: bounding box query")
	}
	defer rows.Close()

	var out []model.CandidateEntity
	for rows.Next() {
		var c model.CandidateEntity
		if err := rows.Scan(&c.ID, &c.Title, &c.Lat, &c.Lon, &c.Artists, &c.Tags,
			&c.ExternalID, &c.RegistryID, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan artwork")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: bounding box rows")
}

func (s *PostgresCorpus) SearchArtistsByName(ctx context.Context, name string, limit int) ([]model.ArtistCandidate, error) {
	// pg_trgm similarity does the coarse narrowing; the resolver re-scores
	// precisely. 0.3 is pg_trgm's default similarity floor.
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at
		 FROM artists
		 WHERE similarity(lower(name), lower($1)) > 0.3
		 ORDER BY similarity(lower(name), lower($1)) DESC, created_at
		 LIMIT $2`,
		name, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: artist name query")
	}
	defer rows.Close()

	var out []model.ArtistCandidate
	for rows.Next() {
		var a model.ArtistCandidate
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan artist")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: artist rows")
}
