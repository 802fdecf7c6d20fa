package photo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
)

const indexFileName = "url-index.json"

type indexEntry struct {
	File     string `json:"file"`
	Hash     string `json:"hash"`
	MIMEType string `json:"mime_type"`
}

// urlIndex maps source URLs to cached files so re-runs skip downloads. It is
// persisted as JSON in the cache directory and rewritten after every change;
// photo batches are small enough that this stays cheap.
type urlIndex struct {
	mu      sync.Mutex
	dir     string
	entries map[string]indexEntry
}

func loadURLIndex(dir string) (*urlIndex, error) {
	idx := &urlIndex{dir: dir, entries: make(map[string]indexEntry)}
	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "photo: read url index")
	}
	if err := json.Unmarshal(data, &idx.entries); err != nil {
		// A corrupt index only costs refetches, so start over instead of
		// failing the run.
		idx.entries = make(map[string]indexEntry)
	}
	return idx, nil
}

func (x *urlIndex) lookup(url string) (indexEntry, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.entries[url]
	return e, ok
}

func (x *urlIndex) record(url string, e indexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[url] = e
	return x.flushLocked()
}

func (x *urlIndex) remove(url string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, url)
	_ = x.flushLocked()
}

func (x *urlIndex) flushLocked() error {
	data, err := json.MarshalIndent(x.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "photo: encode url index")
	}
	tmp, err := os.CreateTemp(x.dir, ".index-*")
	if err != nil {
		return eris.Wrap(err, "photo: index temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "photo: write url index")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "photo: close url index")
	}
	if err := os.Rename(tmpName, filepath.Join(x.dir, indexFileName)); err != nil {
		return eris.Wrap(err, "photo: rename url index")
	}
	return nil
}
