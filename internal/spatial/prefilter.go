// Package spatial narrows the duplicate-candidate set to artworks near a
// record's coordinates before the expensive similarity scoring runs.
package spatial

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/publicartatlas/artimport/internal/model"
	"github.com/publicartatlas/artimport/internal/scorer"
	"github.com/publicartatlas/artimport/internal/store"
)

// metersPerDegreeLat is the approximate length of one degree of latitude.
const metersPerDegreeLat = 111320

// DefaultMaxCandidates caps the candidate set handed to the scorer.
const DefaultMaxCandidates = 50

// Prefilter queries the corpus for artworks inside a bounding box around a
// point and returns them ordered by distance.
type Prefilter struct {
	corpus       store.Corpus
	radiusMeters float64
	maxResults   int
}

// New creates a Prefilter. The radius should match the scorer's geographic
// decay radius so every candidate that could score above zero is considered.
func New(corpus store.Corpus, radiusMeters float64, maxResults int) *Prefilter {
	if maxResults <= 0 {
		maxResults = DefaultMaxCandidates
	}
	return &Prefilter{corpus: corpus, radiusMeters: radiusMeters, maxResults: maxResults}
}

// Candidates returns artworks within the search radius of (lat, lon), closest
// first, capped at the configured maximum. Each candidate's DistanceMeters is
// filled in. A backend failure is returned to the caller, which degrades to
// an empty candidate set rather than blocking the import.
func (p *Prefilter) Candidates(ctx context.Context, lat, lon float64) ([]model.CandidateEntity, error) {
	box := BoundingBoxAround(lat, lon, p.radiusMeters)

	found, err := p.corpus.ArtworksInBoundingBox(ctx, box, p.maxResults)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: candidate query")
	}

	for i := range found {
		found[i].DistanceMeters = scorer.HaversineMeters(lat, lon, found[i].Lat, found[i].Lon)
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].DistanceMeters < found[j].DistanceMeters
	})
	if len(found) > p.maxResults {
		found = found[:p.maxResults]
	}
	return found, nil
}

// BoundingBoxAround converts a radius in meters to a degree-space box around
// the center. The longitude delta widens with latitude since meridians
// converge toward the poles.
func BoundingBoxAround(lat, lon, radiusMeters float64) store.BoundingBox {
	dLat := radiusMeters / metersPerDegreeLat

	cosLat := math.Cos(lat * math.Pi / 180)
	// Near the poles the longitude span degenerates; cover the full range.
	dLon := 180.0
	if cosLat > 1e-6 {
		dLon = dLat / cosLat
	}

	box := store.BoundingBox{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLon: lon - dLon,
		MaxLon: lon + dLon,
	}
	if box.MinLat < -90 {
		box.MinLat = -90
	}
	if box.MaxLat > 90 {
		box.MaxLat = 90
	}
	if box.MinLon < -180 {
		box.MinLon = -180
	}
	if box.MaxLon > 180 {
		box.MaxLon = 180
	}
	return box
}
