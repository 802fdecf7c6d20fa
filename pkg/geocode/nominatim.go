package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/publicartatlas/artimport/internal/resilience"
)

// DefaultBaseURL is the public Nominatim instance. Its usage policy allows at
// most one request per second, which is the default limiter here.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// NominatimClient implements Provider against a Nominatim-compatible
// /reverse endpoint.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the Nominatim client.
type Option func(*NominatimClient)

// WithBaseURL points the client at a different Nominatim-compatible host.
func WithBaseURL(u string) Option {
	return func(c *NominatimClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *NominatimClient) { c.httpClient = hc }
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *NominatimClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// NewNominatim creates a client. The user agent identifies the importer to
// the geocoding service as its ToS requires.
func NewNominatim(userAgent string, opts ...Option) *NominatimClient {
	c := &NominatimClient{
		baseURL:    DefaultBaseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Country string `json:"country"`
		State   string `json:"state"`
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
	Error string `json:"error"`
}

// ReverseGeocode looks up the location fields for a coordinate pair. An
// unresolvable location is not an error, just an unmatched result.
func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limiter wait")
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lon", fmt.Sprintf("%.6f", lon))
	q.Set("format", "jsonv2")
	q.Set("zoom", "18")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: reverse lookup")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: reverse lookup returned %d", resp.StatusCode)
		if resilience.Classify(resp.StatusCode) == resilience.CategoryTransient {
			return nil, &resilience.TransientError{Err: err, StatusCode: resp.StatusCode}
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read response")
	}

	var nr nominatimResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, eris.Wrap(err, "geocode: decode response")
	}
	if nr.Error != "" || nr.DisplayName == "" {
		return &Result{Matched: false}, nil
	}

	city := nr.Address.City
	if city == "" {
		city = nr.Address.Town
	}
	if city == "" {
		city = nr.Address.Village
	}

	return &Result{
		DisplayName: nr.DisplayName,
		Country:     nr.Address.Country,
		State:       nr.Address.State,
		City:        city,
		Matched:     true,
	}, nil
}
