// Package photo downloads, validates, content-hashes, and caches the photos
// attached to import records. Upload to permanent storage is the ingestion
// endpoint's job; this package only stages validated files locally.
package photo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/publicartatlas/artimport/internal/model"
	"github.com/publicartatlas/artimport/internal/resilience"
)

// MaxPhotoBytes rejects photos above this size before hashing or caching.
const MaxPhotoBytes = 15 << 20 // 15MB

// Stored describes one successfully fetched and validated photo.
type Stored struct {
	URL       string `json:"url"`
	CachePath string `json:"cache_path"`
	Hash      string `json:"hash"`
	MIMEType  string `json:"mime_type"`
	ByteSize  int64  `json:"byte_size"`
	Caption   string `json:"caption,omitempty"`
	Credit    string `json:"credit,omitempty"`
	// FromCache marks URL-index hits that skipped the download entirely.
	FromCache bool `json:"from_cache,omitempty"`
}

// Failure describes one photo that could not be fetched or validated.
type Failure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Config controls fetch behavior.
type Config struct {
	CacheDir string
	Timeout  time.Duration
	Retry    resilience.Policy
}

// DefaultConfig returns the fetch defaults: 10s per-request timeout, three
// retries with exponential backoff.
func DefaultConfig(cacheDir string) Config {
	return Config{
		CacheDir: cacheDir,
		Timeout:  10 * time.Second,
		Retry:    resilience.DefaultPolicy(),
	}
}

// Fetcher downloads photos into a content-addressed cache directory.
type Fetcher struct {
	cfg    Config
	client *http.Client
	index  *urlIndex
}

// NewFetcher creates a Fetcher, loading the URL index from a previous run if
// one exists in the cache directory.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "photo: create cache dir %s", cfg.CacheDir)
	}
	idx, err := loadURLIndex(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		index:  idx,
	}, nil
}

// Fetch retrieves every referenced photo. Individual failures never abort the
// batch; the caller decides whether a record can proceed without its photos.
func (f *Fetcher) Fetch(ctx context.Context, refs []model.PhotoRef) ([]Stored, []Failure) {
	var stored []Stored
	var failures []Failure

	for _, ref := range refs {
		s, err := f.fetchOne(ctx, ref)
		if err != nil {
			zap.L().Warn("photo: fetch failed",
				zap.String("url", ref.URL),
				zap.Error(err),
			)
			failures = append(failures, Failure{URL: ref.URL, Reason: err.Error()})
			continue
		}
		stored = append(stored, *s)
	}
	return stored, failures
}

func (f *Fetcher) fetchOne(ctx context.Context, ref model.PhotoRef) (*Stored, error) {
	// URL-index short circuit: a prior run already fetched this URL and the
	// cached file is still present.
	if entry, ok := f.index.lookup(ref.URL); ok {
		path := filepath.Join(f.cfg.CacheDir, entry.File)
		if info, err := os.Stat(path); err == nil {
			return &Stored{
				URL:       ref.URL,
				CachePath: path,
				Hash:      entry.Hash,
				MIMEType:  entry.MIMEType,
				ByteSize:  info.Size(),
				Caption:   ref.Caption,
				Credit:    ref.Credit,
				FromCache: true,
			}, nil
		}
		// Cached file vanished; drop the stale entry and refetch.
		f.index.remove(ref.URL)
	}

	body, err := resilience.DoVal(ctx, f.cfg.Retry, func(ctx context.Context) ([]byte, error) {
		return f.download(ctx, ref.URL)
	})
	if err != nil {
		return nil, err
	}

	format, err := ValidateImage(body)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	fileName := hash + format.Extension
	path := filepath.Join(f.cfg.CacheDir, fileName)

	// Content-hash dedup: an identical file fetched under another URL is
	// reused rather than written again.
	if _, statErr := os.Stat(path); statErr != nil {
		if writeErr := writeFileAtomic(f.cfg.CacheDir, path, body); writeErr != nil {
			return nil, writeErr
		}
	}

	if err := f.index.record(ref.URL, indexEntry{File: fileName, Hash: hash, MIMEType: format.MIME}); err != nil {
		zap.L().Warn("photo: url index update failed", zap.Error(err))
	}

	return &Stored{
		URL:       ref.URL,
		CachePath: path,
		Hash:      hash,
		MIMEType:  format.MIME,
		ByteSize:  int64(len(body)),
		Caption:   ref.Caption,
		Credit:    ref.Credit,
	}, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "photo: build request %s", rawURL)
	}
	req.Header.Set("User-Agent", "artimport/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "photo: get %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("photo: %s returned %d", rawURL, resp.StatusCode)
		if resilience.Classify(resp.StatusCode) == resilience.CategoryTransient {
			return nil, &resilience.TransientError{Err: statusErr, StatusCode: resp.StatusCode}
		}
		return nil, statusErr
	}

	// Read one byte past the cap to distinguish at-limit from over-limit.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPhotoBytes+1))
	if err != nil {
		return nil, eris.Wrapf(err, "photo: read %s", rawURL)
	}
	if len(body) > MaxPhotoBytes {
		return nil, eris.Errorf("photo: %s exceeds %d bytes", rawURL, int64(MaxPhotoBytes))
	}
	return body, nil
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".photo-*")
	if err != nil {
		return eris.Wrap(err, "photo: temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "photo: write cache file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "photo: close cache file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrap(err, "photo: rename cache file")
	}
	return nil
}
