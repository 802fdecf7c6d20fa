package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publicartatlas/artimport/internal/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "checkpoints"))
	require.NoError(t, err)
	return fs
}

func TestSessionIDFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/vancouver-2026.geojson", "vancouver-2026"},
		{"Burnaby Art (final).json", "burnaby-art-final"},
		{"UPPER_case.geojson", "upper-case"},
		{"???.json", "import"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SessionIDFor(tt.path), tt.path)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := newTestStore(t)

	state := model.NewSessionState("vancouver-2026", "/data/vancouver-2026.geojson",
		[]string{"osm/1", "osm/2", "osm/3"})
	require.NoError(t, state.MarkItem(0, model.ItemSucceeded, "created", ""))
	require.NoError(t, fs.Save(state))

	loaded, err := fs.Load("vancouver-2026")
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, loaded.SessionID)
	assert.Equal(t, 3, loaded.Total)
	assert.Equal(t, model.ItemSucceeded, loaded.Items[0].Status)
	assert.Equal(t, model.ItemPending, loaded.Items[1].Status)
}

func TestLoadMissing(t *testing.T) {
	fs := newTestStore(t)
	_, err := fs.Load("nope")
	assert.ErrorIs(t, err, ErrNoCheckpoint)
}

func TestLoadCorrupt(t *testing.T) {
	fs := newTestStore(t)
	require.NoError(t, os.WriteFile(fs.path("bad"), []byte("{not json"), 0o644))

	_, err := fs.Load("bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCheckpoint)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestLoadSessionMismatch(t *testing.T) {
	fs := newTestStore(t)
	state := model.NewSessionState("other-id", "in.json", []string{"a/1"})
	require.NoError(t, fs.Save(state))
	require.NoError(t, os.Rename(fs.path("other-id"), fs.path("renamed")))

	_, err := fs.Load("renamed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds session")
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	fs := newTestStore(t)
	state := model.NewSessionState("s", "in.json", []string{"a/1"})
	require.NoError(t, fs.Save(state))
	require.NoError(t, fs.Save(state))

	entries, err := os.ReadDir(fs.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
	}
}

func TestDelete(t *testing.T) {
	fs := newTestStore(t)
	state := model.NewSessionState("gone", "in.json", []string{"a/1"})
	require.NoError(t, fs.Save(state))

	require.NoError(t, fs.Delete("gone"))
	_, err := fs.Load("gone")
	assert.ErrorIs(t, err, ErrNoCheckpoint)

	// Deleting again is fine.
	assert.NoError(t, fs.Delete("gone"))
}

func TestList(t *testing.T) {
	fs := newTestStore(t)
	require.NoError(t, fs.Save(model.NewSessionState("b-session", "b.json", []string{"b/1"})))
	require.NoError(t, fs.Save(model.NewSessionState("a-session", "a.json", []string{"a/1"})))

	// Corrupt entries are skipped from the listing.
	require.NoError(t, os.WriteFile(fs.path("junk"), []byte("??"), 0o644))

	sessions, err := fs.List()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a-session", sessions[0].SessionID)
	assert.Equal(t, "b-session", sessions[1].SessionID)
}
