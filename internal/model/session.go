package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ItemStatus is the checkpoint status of one input record.
type ItemStatus string

// Item statuses. Transitions only go pending -> terminal, never back.
const (
	ItemPending   ItemStatus = "pending"
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
	ItemSkipped   ItemStatus = "skipped"
)

// Terminal reports whether the status is a terminal per-item state.
func (s ItemStatus) Terminal() bool {
	switch s {
	case ItemSucceeded, ItemFailed, ItemSkipped:
		return true
	}
	return false
}

// ItemState is the per-record entry inside a session checkpoint.
type ItemState struct {
	Index     int        `json:"index"`
	SourceRef string     `json:"source_ref"`
	Status    ItemStatus `json:"status"`
	// Outcome carries the duplicate/merged/created detail for terminal items.
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ImportSessionState is the resumable checkpoint for one run.
type ImportSessionState struct {
	SessionID string      `json:"session_id"`
	InputPath string      `json:"input_path"`
	Total     int         `json:"total"`
	Items     []ItemState `json:"items"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewSessionState builds a fresh checkpoint with every item pending.
func NewSessionState(sessionID, inputPath string, refs []string) *ImportSessionState {
	now := time.Now().UTC()
	items := make([]ItemState, len(refs))
	for i, ref := range refs {
		items[i] = ItemState{Index: i, SourceRef: ref, Status: ItemPending}
	}
	return &ImportSessionState{
		SessionID: sessionID,
		InputPath: inputPath,
		Total:     len(refs),
		Items:     items,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// MarkItem transitions item i to a terminal status. Demoting a terminal item
// back to pending, or re-marking it, is rejected so the set of processed
// items only grows.
func (s *ImportSessionState) MarkItem(i int, status ItemStatus, outcome, errDetail string) error {
	if i < 0 || i >= len(s.Items) {
		return eris.Errorf("session %s: item index %d out of range [0,%d)", s.SessionID, i, len(s.Items))
	}
	if !status.Terminal() {
		return eris.Errorf("session %s: cannot transition item %d to %q", s.SessionID, i, status)
	}
	if s.Items[i].Status.Terminal() {
		return eris.Errorf("session %s: item %d already %s", s.SessionID, i, s.Items[i].Status)
	}
	s.Items[i].Status = status
	s.Items[i].Outcome = outcome
	s.Items[i].Error = errDetail
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Processed returns the number of items in a terminal status.
func (s *ImportSessionState) Processed() int {
	n := 0
	for _, it := range s.Items {
		if it.Status.Terminal() {
			n++
		}
	}
	return n
}

// Complete reports whether no pending items remain.
func (s *ImportSessionState) Complete() bool {
	return s.Processed() == len(s.Items)
}

// Counts returns the per-status totals.
func (s *ImportSessionState) Counts() map[ItemStatus]int {
	counts := make(map[ItemStatus]int, 4)
	for _, it := range s.Items {
		counts[it.Status]++
	}
	return counts
}
