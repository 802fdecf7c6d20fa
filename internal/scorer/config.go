// Package scorer implements the weighted multi-signal similarity scoring used
// to deduplicate incoming artworks against the existing corpus, and the
// threshold policy applied to the resulting scores.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Config holds the similarity weights and decision thresholds.
//
// Weights are not required to sum to 1.0: the reference-ID signal is allowed
// to dominate because an exact ID match is a near-certain duplicate regardless
// of other mismatches. Absent signals contribute nothing and their weight is
// not redistributed, so incomplete records score lower rather than higher.
type Config struct {
	GeoWeight    float64 `yaml:"geo_weight" mapstructure:"geo_weight"`
	TitleWeight  float64 `yaml:"title_weight" mapstructure:"title_weight"`
	ArtistWeight float64 `yaml:"artist_weight" mapstructure:"artist_weight"`
	RefIDWeight  float64 `yaml:"ref_id_weight" mapstructure:"ref_id_weight"`
	TagWeight    float64 `yaml:"tag_weight" mapstructure:"tag_weight"`

	// MaxDistanceMeters is the radius at which the geographic signal decays
	// to zero. It doubles as the spatial prefilter search radius.
	MaxDistanceMeters float64 `yaml:"max_distance_meters" mapstructure:"max_distance_meters"`

	// HighThreshold and above is a certain duplicate; WarnThreshold up to
	// HighThreshold is a possible duplicate flagged for review.
	HighThreshold float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	WarnThreshold float64 `yaml:"warn_threshold" mapstructure:"warn_threshold"`

	// ArtistMatchThreshold is the minimum name-similarity for resolving a
	// raw artist name to an existing artist. Deliberately higher than the
	// duplicate thresholds: artist identity errors are hard to undo.
	ArtistMatchThreshold float64 `yaml:"artist_match_threshold" mapstructure:"artist_match_threshold"`
}

// DefaultConfig returns the default weights and thresholds.
func DefaultConfig() Config {
	return Config{
		GeoWeight:    0.6,
		TitleWeight:  0.25,
		ArtistWeight: 0.2,
		RefIDWeight:  0.5,
		TagWeight:    0.05,

		MaxDistanceMeters: 100,

		HighThreshold:        0.80,
		WarnThreshold:        0.65,
		ArtistMatchThreshold: 0.95,
	}
}

// Validate checks that a Config is internally consistent.
func (c Config) Validate() error {
	var errs []string

	weights := map[string]float64{
		"geo_weight":    c.GeoWeight,
		"title_weight":  c.TitleWeight,
		"artist_weight": c.ArtistWeight,
		"ref_id_weight": c.RefIDWeight,
		"tag_weight":    c.TagWeight,
	}
	for name, w := range weights {
		if w < 0 || w > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0,1]", name))
		}
	}

	if c.MaxDistanceMeters <= 0 {
		errs = append(errs, "max_distance_meters must be > 0")
	}
	for name, v := range map[string]float64{
		"high_threshold":         c.HighThreshold,
		"warn_threshold":         c.WarnThreshold,
		"artist_match_threshold": c.ArtistMatchThreshold,
	} {
		if v <= 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be in (0,1]", name))
		}
	}
	if c.WarnThreshold > c.HighThreshold {
		errs = append(errs, "warn_threshold must be <= high_threshold")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
