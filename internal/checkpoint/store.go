// Package checkpoint persists per-item processing state so an interrupted
// import can resume without reprocessing completed items.
package checkpoint

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/publicartatlas/artimport/internal/model"
)

// ErrNoCheckpoint is returned by Load when no checkpoint exists for the
// session. Callers distinguish it from corruption, which is a hard error.
var ErrNoCheckpoint = errors.New("checkpoint: not found")

// FileStore keeps one JSON checkpoint file per session in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the checkpoint directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: create dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// SessionIDFor derives the session identifier from the input filename, so
// re-running the same input resumes the same session.
func SessionIDFor(inputPath string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(base) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteRune('-')
				prevDash = true
			}
		}
	}
	id := strings.Trim(b.String(), "-")
	if id == "" {
		id = "import"
	}
	return id
}

func (fs *FileStore) path(sessionID string) string {
	return filepath.Join(fs.dir, sessionID+".checkpoint.json")
}

// Load reads the checkpoint for a session. Returns ErrNoCheckpoint when none
// exists; a malformed file is surfaced as an explicit error, never silently
// reset.
func (fs *FileStore) Load(sessionID string) (*model.ImportSessionState, error) {
	data, err := os.ReadFile(fs.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCheckpoint
		}
		return nil, eris.Wrapf(err, "checkpoint: read %s", sessionID)
	}

	var state model.ImportSessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: %s is corrupt", sessionID)
	}
	if state.SessionID != sessionID {
		return nil, eris.Errorf("checkpoint: %s holds session %q", sessionID, state.SessionID)
	}
	if len(state.Items) != state.Total {
		return nil, eris.Errorf("checkpoint: %s item count %d does not match total %d",
			sessionID, len(state.Items), state.Total)
	}
	return &state, nil
}

// Save durably writes the full session state: marshal to a temp file in the
// same directory, fsync, then rename over the final path. A crash mid-write
// leaves the previous checkpoint intact.
func (fs *FileStore) Save(state *model.ImportSessionState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "checkpoint: marshal %s", state.SessionID)
	}

	tmp, err := os.CreateTemp(fs.dir, state.SessionID+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "checkpoint: temp file for %s", state.SessionID)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "checkpoint: write %s", state.SessionID)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "checkpoint: sync %s", state.SessionID)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "checkpoint: close %s", state.SessionID)
	}

	if err := os.Rename(tmpName, fs.path(state.SessionID)); err != nil {
		return eris.Wrapf(err, "checkpoint: rename %s", state.SessionID)
	}
	return nil
}

// Delete removes the checkpoint for a fully completed session. Missing files
// are not an error.
func (fs *FileStore) Delete(sessionID string) error {
	if err := os.Remove(fs.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "checkpoint: delete %s", sessionID)
	}
	return nil
}

// List returns every stored session state, sorted by session id. Corrupt
// entries are skipped here (the sessions listing is diagnostic); Load remains
// strict for resume.
func (fs *FileStore) List() ([]model.ImportSessionState, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: list %s", fs.dir)
	}

	var out []model.ImportSessionState
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".checkpoint.json") {
			continue
		}
		id := strings.TrimSuffix(name, ".checkpoint.json")
		state, err := fs.Load(id)
		if err != nil {
			continue
		}
		out = append(out, *state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}
