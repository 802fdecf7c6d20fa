package model

import "github.com/rotisserie/eris"

// ArtistRole describes how an artist relates to an artwork on the link record.
type ArtistRole string

// Artist roles.
const (
	RolePrimary     ArtistRole = "primary"
	RoleContributor ArtistRole = "contributor"
)

// ArtistLink associates one resolved artist with an artwork.
type ArtistLink struct {
	ArtistID string     `json:"artist_id"`
	Role     ArtistRole `json:"role"`
}

// ArtistMatch is the outcome of resolving one raw artist name. Exactly one of
// MatchedID and CreatedID is set.
type ArtistMatch struct {
	RawName    string  `json:"raw_name"`
	MatchedID  string  `json:"matched_id,omitempty"`
	CreatedID  string  `json:"created_id,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ResolvedID returns whichever of the two identifiers is set.
func (m *ArtistMatch) ResolvedID() string {
	if m.MatchedID != "" {
		return m.MatchedID
	}
	return m.CreatedID
}

// Validate enforces the exclusivity invariant: a match points at an existing
// artist or a newly created one, never both and never neither.
func (m *ArtistMatch) Validate() error {
	if m.MatchedID != "" && m.CreatedID != "" {
		return eris.Errorf("artist match %q: both matched and created ids set", m.RawName)
	}
	if m.MatchedID == "" && m.CreatedID == "" {
		return eris.Errorf("artist match %q: no resolved id", m.RawName)
	}
	return nil
}
