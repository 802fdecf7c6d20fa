// Package artist resolves raw artist name strings against the catalogue's
// artist corpus, creating new artist entities when no close match exists.
package artist

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/publicartatlas/artimport/internal/model"
	"github.com/publicartatlas/artimport/internal/scorer"
	"github.com/publicartatlas/artimport/internal/store"
	"github.com/publicartatlas/artimport/pkg/ingest"
)

// DefaultMatchThreshold is the minimum fuzzy similarity for linking a raw
// name to an existing artist. Below it the name is treated as a new artist.
const DefaultMatchThreshold = 0.95

// ProvenanceSource tags artists the importer created automatically, so they
// can be found and audited separately from curated entries.
const ProvenanceSource = "mass-import-auto-created"

// ErrNotFound reports a name with no close corpus match while auto-creation
// is disabled. The caller decides whether the artwork imports without the
// link or fails.
var ErrNotFound = errors.New("artist not found")

const searchLimit = 10

// Config controls resolution behavior.
type Config struct {
	// MatchThreshold is the similarity floor for reusing an existing artist.
	MatchThreshold float64
	// CreateMissing enables auto-creation. When false, unmatched names
	// fail resolution with ErrNotFound.
	CreateMissing bool
}

// DefaultConfig enables auto-creation at the standard threshold.
func DefaultConfig() Config {
	return Config{MatchThreshold: DefaultMatchThreshold, CreateMissing: true}
}

// Resolver finds or creates artists for the names attached to an import
// record.
type Resolver struct {
	corpus store.Corpus
	writer ingest.Client
	cfg    Config
}

// New creates a Resolver. writer may be nil only when cfg.CreateMissing is
// false.
func New(corpus store.Corpus, writer ingest.Client, cfg Config) *Resolver {
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	return &Resolver{corpus: corpus, writer: writer, cfg: cfg}
}

// Resolve processes each raw name independently and returns one match per
// name that resolved. artworkRef identifies the originating artwork in the
// provenance tags of any artist created here. Failures on one name do not
// block the others; the first error is returned alongside the successful
// matches so the caller can decide whether the record may proceed.
func (r *Resolver) Resolve(ctx context.Context, names []string, artworkRef string) ([]model.ArtistMatch, error) {
	var matches []model.ArtistMatch
	var firstErr error

	for _, raw := range names {
		if scorer.Normalize(raw) == "" {
			continue
		}
		m, err := r.resolveOne(ctx, raw, artworkRef)
		if err != nil {
			zap.L().Warn("artist: resolve failed",
				zap.String("name", raw),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if m != nil {
			matches = append(matches, *m)
		}
	}
	return matches, firstErr
}

func (r *Resolver) resolveOne(ctx context.Context, raw, artworkRef string) (*model.ArtistMatch, error) {
	candidates, err := r.corpus.SearchArtistsByName(ctx, raw, searchLimit)
	if err != nil {
		return nil, eris.Wrapf(err, "artist: search %q", raw)
	}

	best, bestScore := r.bestMatch(raw, candidates)
	if best != nil {
		zap.L().Debug("artist: matched existing",
			zap.String("name", raw),
			zap.String("artist_id", best.ID),
			zap.Float64("similarity", bestScore),
		)
		return &model.ArtistMatch{RawName: raw, MatchedID: best.ID, Confidence: bestScore}, nil
	}

	if !r.cfg.CreateMissing {
		return nil, eris.Wrapf(ErrNotFound, "artist: %q", raw)
	}

	resp, err := r.writer.CreateArtist(ctx, ingest.ArtistSubmission{
		Name: raw,
		Tags: map[string]string{
			"source":  ProvenanceSource,
			"artwork": artworkRef,
			"reason":  "referenced_in_artwork",
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "artist: create %q", raw)
	}
	zap.L().Info("artist: created",
		zap.String("name", raw),
		zap.String("artist_id", resp.ID),
	)
	return &model.ArtistMatch{RawName: raw, CreatedID: resp.ID, Confidence: 1.0}, nil
}

// bestMatch re-scores the coarse candidates precisely and returns the top
// candidate at or above the threshold. Ties go to the earliest-created
// artist, matching the corpus search ordering.
func (r *Resolver) bestMatch(raw string, candidates []model.ArtistCandidate) (*model.ArtistCandidate, float64) {
	var best *model.ArtistCandidate
	bestScore := 0.0
	for i := range candidates {
		s := scorer.StringSimilarity(raw, candidates[i].Name)
		if s < r.cfg.MatchThreshold {
			continue
		}
		if best == nil || s > bestScore ||
			(s == bestScore && candidates[i].CreatedAt.Before(best.CreatedAt)) {
			best = &candidates[i]
			bestScore = s
		}
	}
	return best, bestScore
}

// Links converts resolved matches into artwork link payloads. The first
// resolved artist is the primary, the rest are contributors.
func Links(matches []model.ArtistMatch) []model.ArtistLink {
	links := make([]model.ArtistLink, 0, len(matches))
	for i, m := range matches {
		role := model.RoleContributor
		if i == 0 {
			role = model.RolePrimary
		}
		links = append(links, model.ArtistLink{ArtistID: m.ResolvedID(), Role: role})
	}
	return links
}
