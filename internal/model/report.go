package model

import "time"

// OutcomeKind tags a per-item result. Control flow through the orchestrator's
// per-item state machine is carried by this value, not by errors.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeCreated   OutcomeKind = "created"
	OutcomeDuplicate OutcomeKind = "duplicate"
	OutcomeMerged    OutcomeKind = "merged"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeSkipped   OutcomeKind = "skipped"
)

// ItemOutcome is the terminal result for one record, mirrored into the report.
type ItemOutcome struct {
	Index     int         `json:"index"`
	SourceRef string      `json:"source_ref"`
	Kind      OutcomeKind `json:"kind"`
	// ArtworkID is the created artwork id, or the matched existing id for
	// duplicate/merged outcomes.
	ArtworkID string `json:"artwork_id,omitempty"`
	// Score is recorded for duplicate decisions so they can be audited
	// without re-running the import.
	Score         *SimilarityScore `json:"score,omitempty"`
	ArtistMatches []ArtistMatch    `json:"artist_matches,omitempty"`
	PhotosStored  int              `json:"photos_stored,omitempty"`
	PhotosFailed  int              `json:"photos_failed,omitempty"`
	// Category and Error diagnose failures without verbose re-runs.
	Category string `json:"category,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ReportCounts aggregates per-item outcomes.
type ReportCounts struct {
	Total      int `json:"total"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// ImportRunReport is the final aggregate output of one run.
type ImportRunReport struct {
	RunID     string        `json:"run_id"`
	SessionID string        `json:"session_id"`
	InputPath string        `json:"input_path"`
	Source    string        `json:"source"`
	Counts    ReportCounts  `json:"counts"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration_ns"`
	Items     []ItemOutcome `json:"items"`

	CreatedArtworkIDs    []string `json:"created_artwork_ids,omitempty"`
	LinkedArtistIDs      []string `json:"linked_artist_ids,omitempty"`
	AutoCreatedArtistIDs []string `json:"auto_created_artist_ids,omitempty"`
	Aborted              bool     `json:"aborted,omitempty"`
	AbortReason          string   `json:"abort_reason,omitempty"`
}
