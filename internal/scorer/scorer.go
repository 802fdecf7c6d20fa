package scorer

import (
	"math"
	"sort"

	"github.com/publicartatlas/artimport/internal/model"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000

// Decision classifies a total score against the configured thresholds.
type Decision string

// Decisions.
const (
	DecisionDistinct  Decision = "distinct"  // below warn threshold: create
	DecisionPossible  Decision = "possible"  // warn band: flag for review
	DecisionDuplicate Decision = "duplicate" // at/above high threshold: skip or merge
)

// Scored pairs a candidate with its similarity score for ranking.
type Scored struct {
	Candidate model.CandidateEntity
	Score     model.SimilarityScore
}

// Score computes the weighted similarity between a record and one candidate.
// Pure function of its inputs: no I/O, no randomness. A signal contributes
// only when both sides have a usable value; absent signals leave the total
// lower rather than redistributing weight.
func Score(rec *model.RawImportRecord, cand *model.CandidateEntity, cfg Config) model.SimilarityScore {
	s := model.SimilarityScore{CandidateID: cand.ID}

	// Geographic: linear decay from 1.0 at zero distance to 0 at the radius.
	dist := HaversineMeters(rec.Lat, rec.Lon, cand.Lat, cand.Lon)
	s.DistanceMeters = dist
	if dist < cfg.MaxDistanceMeters {
		s.Geographic = 1 - dist/cfg.MaxDistanceMeters
	}
	total := cfg.GeoWeight * s.Geographic

	// Title: both sides always have one (record titles are validated,
	// corpus titles may be empty for untitled works).
	if rec.Title != "" && cand.Title != "" {
		s.Title = StringSimilarity(rec.Title, cand.Title)
		total += cfg.TitleWeight * s.Title
	}

	// Artist: max pairwise fuzzy match, skipped when either side has none.
	if len(rec.Artists) > 0 && len(cand.Artists) > 0 {
		s.Artist = NameSimilarity(rec.Artists, cand.Artists)
		total += cfg.ArtistWeight * s.Artist
	}

	// Reference ID: exact match on any external or registry id.
	if hasRefID(rec) && (cand.ExternalID != "" || cand.RegistryID != "") {
		if refIDMatch(rec, cand) {
			s.ReferenceID = 1
		}
		total += cfg.RefIDWeight * s.ReferenceID
	}

	// Tag overlap: fraction of the key union matching exactly.
	if len(rec.Tags) > 0 && len(cand.Tags) > 0 {
		s.TagOverlap = tagOverlap(rec.Tags, cand.Tags)
		total += cfg.TagWeight * s.TagOverlap
	}

	if total > 1 {
		total = 1
	}
	s.Total = total
	return s
}

// Evaluate scores the record against every candidate and returns the results
// ranked best-first: total descending, then distance ascending, then earliest
// created. The ordering is deterministic so repeated runs pick the same
// winner.
func Evaluate(rec *model.RawImportRecord, candidates []model.CandidateEntity, cfg Config) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, Scored{Candidate: c, Score: Score(rec, &c, cfg)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		if a.Score.DistanceMeters != b.Score.DistanceMeters {
			return a.Score.DistanceMeters < b.Score.DistanceMeters
		}
		return a.Candidate.CreatedAt.Before(b.Candidate.CreatedAt)
	})
	return scored
}

// Decide classifies a total score against the thresholds. A score exactly at
// the high threshold counts as a duplicate.
func Decide(total float64, cfg Config) Decision {
	switch {
	case total >= cfg.HighThreshold:
		return DecisionDuplicate
	case total >= cfg.WarnThreshold:
		return DecisionPossible
	default:
		return DecisionDistinct
	}
}

// HaversineMeters returns the great-circle distance between two coordinates.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func hasRefID(rec *model.RawImportRecord) bool {
	return rec.ExternalID != "" || rec.RegistryID != ""
}

func refIDMatch(rec *model.RawImportRecord, cand *model.CandidateEntity) bool {
	for _, id := range []string{rec.ExternalID, rec.RegistryID} {
		if id == "" {
			continue
		}
		if id == cand.ExternalID || id == cand.RegistryID {
			return true
		}
	}
	return false
}

func tagOverlap(a, b map[string]string) float64 {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 0
	}

	matches := 0
	for k := range keys {
		va, oka := a[k]
		vb, okb := b[k]
		if oka && okb && va == vb {
			matches++
		}
	}
	return float64(matches) / float64(len(keys))
}
