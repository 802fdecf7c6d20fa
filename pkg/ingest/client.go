// Package ingest is the write-side client for the catalogue's ingestion
// endpoint. The corpus store is read-only; every artwork, artist, and tag
// merge produced by an import run goes through this API.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/publicartatlas/artimport/internal/resilience"
)

// Default base URL for the catalogue ingestion API.
const defaultBaseURL = "https://api.publicartatlas.org/v1"

// Client defines the ingestion API operations used by an import run.
type Client interface {
	SubmitArtwork(ctx context.Context, req ArtworkSubmission) (*ArtworkResponse, error)
	CreateArtist(ctx context.Context, req ArtistSubmission) (*ArtistResponse, error)
	MergeTags(ctx context.Context, artworkID string, tags map[string]string) (*TagMergeResponse, error)
}

// ArtistLinkPayload attaches one resolved artist to an artwork submission.
type ArtistLinkPayload struct {
	ArtistID string `json:"artist_id"`
	Role     string `json:"role"`
}

// PhotoPayload references one validated photo by content hash. The endpoint
// pulls the bytes from the staging path supplied in the multipart follow-up;
// the submission itself only carries metadata.
type PhotoPayload struct {
	Hash     string `json:"hash"`
	MIMEType string `json:"mime_type"`
	ByteSize int64  `json:"byte_size"`
	Caption  string `json:"caption,omitempty"`
	Credit   string `json:"credit,omitempty"`
}

// ArtworkSubmission is the body for POST /artworks.
type ArtworkSubmission struct {
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	Lat           float64             `json:"lat"`
	Lon           float64             `json:"lon"`
	Artists       []ArtistLinkPayload `json:"artists,omitempty"`
	Material      string              `json:"material,omitempty"`
	ArtworkType   string              `json:"artwork_type,omitempty"`
	YearInstalled string              `json:"year_installed,omitempty"`
	Address       string              `json:"address,omitempty"`
	Neighborhood  string              `json:"neighborhood,omitempty"`
	SiteName      string              `json:"site_name,omitempty"`
	Country       string              `json:"country,omitempty"`
	State         string              `json:"state,omitempty"`
	City          string              `json:"city,omitempty"`
	Status        string              `json:"status,omitempty"`
	Tags          map[string]string   `json:"tags,omitempty"`
	ExternalID    string              `json:"external_id,omitempty"`
	Source        string              `json:"source"`
	RegistryID    string              `json:"registry_id,omitempty"`
	Photos        []PhotoPayload      `json:"photos,omitempty"`
}

// ArtworkResponse is the response from POST /artworks.
type ArtworkResponse struct {
	ID string `json:"id"`
}

// ArtistSubmission is the body for POST /artists. Tags carry provenance for
// auto-created artists so they can be audited later.
type ArtistSubmission struct {
	Name string            `json:"name"`
	Tags map[string]string `json:"tags,omitempty"`
}

// ArtistResponse is the response from POST /artists.
type ArtistResponse struct {
	ID string `json:"id"`
}

// TagMergeResponse is the response from PATCH /artworks/{id}/tags.
type TagMergeResponse struct {
	ID   string            `json:"id"`
	Tags map[string]string `json:"tags"`
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default write rate.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an ingestion client. Writes are limited to 5 requests per
// second by default; the endpoint's own 429 responses carry Retry-After and
// are surfaced as transient errors for the caller's retry policy.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SubmitArtwork(ctx context.Context, req ArtworkSubmission) (*ArtworkResponse, error) {
	var resp ArtworkResponse
	if err := c.send(ctx, http.MethodPost, "/artworks", req, &resp); err != nil {
		return nil, eris.Wrap(err, "ingest: submit artwork")
	}
	return &resp, nil
}

func (c *httpClient) CreateArtist(ctx context.Context, req ArtistSubmission) (*ArtistResponse, error) {
	var resp ArtistResponse
	if err := c.send(ctx, http.MethodPost, "/artists", req, &resp); err != nil {
		return nil, eris.Wrap(err, "ingest: create artist")
	}
	return &resp, nil
}

func (c *httpClient) MergeTags(ctx context.Context, artworkID string, tags map[string]string) (*TagMergeResponse, error) {
	var resp TagMergeResponse
	path := fmt.Sprintf("/artworks/%s/tags", artworkID)
	if err := c.send(ctx, http.MethodPatch, path, map[string]any{"tags": tags}, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("ingest: merge tags %s", artworkID))
	}
	return &resp, nil
}

func (c *httpClient) send(ctx context.Context, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyResponse(resp, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "decode response")
		}
	}
	return nil
}

// classifyResponse maps an error response onto the run's error taxonomy:
// auth failures abort the run, validation rejections fail the item, and
// transient statuses are retried with any server-supplied Retry-After delay.
func classifyResponse(resp *http.Response, body []byte) error {
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	base := eris.Errorf("ingest: HTTP %d: %s", resp.StatusCode, msg)

	switch resilience.Classify(resp.StatusCode) {
	case resilience.CategoryAuth:
		return &resilience.AuthError{Err: base, StatusCode: resp.StatusCode}
	case resilience.CategoryValidation:
		return &resilience.ValidationError{Err: base, Detail: msg}
	case resilience.CategoryTransient:
		return &resilience.TransientError{
			Err:        base,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		return base
	}
}

// parseRetryAfter handles the delay-seconds form of the header. The HTTP-date
// form is rare on rate limiters and falls back to computed backoff.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
