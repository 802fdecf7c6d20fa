// Package store provides read-only query access to the existing artwork and
// artist corpus. The corpus itself is owned by the main application's
// database layer; the import pipeline only reads candidate sets from it.
package store

import (
	"context"

	"github.com/publicartatlas/artimport/internal/model"
)

// BoundingBox is a degree-space rectangle for index-friendly spatial queries.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point falls inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Corpus is the read-only query interface over the existing entity store.
type Corpus interface {
	// ArtworksInBoundingBox returns artworks whose coordinates fall inside
	// the box, up to limit, in no particular order.
	ArtworksInBoundingBox(ctx context.Context, box BoundingBox, limit int) ([]model.CandidateEntity, error)

	// SearchArtistsByName returns artist candidates whose names coarsely
	// match the query. Results are a superset for the resolver's precise
	// fuzzy scoring, not a final answer.
	SearchArtistsByName(ctx context.Context, name string, limit int) ([]model.ArtistCandidate, error)

	Close() error
}
