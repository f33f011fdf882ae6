package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MartinDM/data-app/internal/domain"
)

// DefaultBaseURL is the Mapbox v6 reverse geocoding endpoint.
const DefaultBaseURL = "https://api.mapbox.com/search/geocode/v6/reverse"

// MapboxOptions configures a MapboxClient.
type MapboxOptions struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// MapboxClient issues one reverse-geocode request per call. It does not
// retry.
type MapboxClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewMapboxClient builds a client. A missing token is reported on each
// Reverse call rather than here so the service can start without one.
func NewMapboxClient(opts MapboxOptions) *MapboxClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MapboxClient{
		baseURL: baseURL,
		token:   opts.AccessToken,
		http:    client,
		logger:  logger.With("component", "geocode"),
	}
}

// Reverse looks up the address at point.
func (c *MapboxClient) Reverse(ctx context.Context, point domain.Coordinates) (string, error) {
	if c.token == "" {
		return "", ErrMissingToken
	}
	if err := validPoint(point); err != nil {
		return "", err
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %v", ErrLookupFailed, err)
	}
	q := endpoint.Query()
	q.Set("longitude", strconv.FormatFloat(point.Lng, 'f', -1, 64))
	q.Set("latitude", strconv.FormatFloat(point.Lat, 'f', -1, 64))
	q.Set("access_token", c.token)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("reverse geocode rejected",
			"status", resp.StatusCode,
			"body", string(body),
		)
		return "", fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var fc FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrLookupFailed, err)
	}

	c.logger.Debug("reverse geocode completed",
		"features", len(fc.Features),
		"duration", time.Since(start),
	)
	return fc.Address()
}
