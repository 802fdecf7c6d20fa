package model

import "time"

// CandidateEntity is an existing stored artwork considered as a potential
// duplicate target for an incoming record.
type CandidateEntity struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Artists    []string          `json:"artists,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
	ExternalID string            `json:"external_id,omitempty"`
	RegistryID string            `json:"registry_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`

	// DistanceMeters is filled by the spatial prefilter relative to the
	// record under consideration; zero until then.
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// ArtistCandidate is an existing artist entity returned by the corpus
// name index for fuzzy matching.
type ArtistCandidate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SimilarityScore is the outcome of comparing one RawImportRecord against one
// CandidateEntity. Sub-scores are in [0,1]; Total is the weighted sum capped
// at 1.0.
type SimilarityScore struct {
	CandidateID string  `json:"candidate_id"`
	Geographic  float64 `json:"geographic"`
	Title       float64 `json:"title"`
	Artist      float64 `json:"artist"`
	ReferenceID float64 `json:"reference_id"`
	TagOverlap  float64 `json:"tag_overlap"`
	Total       float64 `json:"total"`

	// DistanceMeters records the geographic separation used for the
	// geographic sub-score and for tie-breaking.
	DistanceMeters float64 `json:"distance_meters"`
}
