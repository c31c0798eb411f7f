// Package geo provides best-effort location lookup used to bias map-grounded
// answers.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultLookupURL is an IP geolocation endpoint returning lat/lon JSON
const DefaultLookupURL = "http://ip-api.com/json/"

var (
	ErrUnavailable = errors.New("location unavailable")
	ErrDisabled    = errors.New("location disabled")
)

// Location is a WGS84 coordinate pair
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinates are within range
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// Locator resolves the current location
type Locator interface {
	Locate(ctx context.Context) (*Location, error)
}

// Static always returns the configured location
type Static struct {
	Location Location
}

func (s Static) Locate(context.Context) (*Location, error) {
	if !s.Location.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrUnavailable)
	}
	loc := s.Location
	return &loc, nil
}

// Disabled never resolves a location
type Disabled struct{}

func (Disabled) Locate(context.Context) (*Location, error) {
	return nil, ErrDisabled
}

// IPLocator looks up the approximate location of the public IP address
type IPLocator struct {
	URL    string
	Client *http.Client
}

type ipLookupResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

func (l IPLocator) Locate(ctx context.Context) (*Location, error) {
	url := l.URL
	if url == "" {
		url = DefaultLookupURL
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: lookup returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode lookup response: %v", ErrUnavailable, err)
	}
	if body.Status != "" && body.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return nil, fmt.Errorf("%w: lookup response has no coordinates", ErrUnavailable)
	}

	loc := Location{Latitude: *body.Lat, Longitude: *body.Lon}
	if !loc.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrUnavailable)
	}
	return &loc, nil
}

// Once resolves a location at most once and remembers the outcome, failure
// included. A lookup abandoned because the caller's context ended is not
// remembered. Lookups are bounded by the timeout.
type Once struct {
	locator Locator
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	done bool
	loc  *Location
}

// NewOnce wraps locator in a one-shot, best-effort lookup
func NewOnce(locator Locator, timeout time.Duration, logger *slog.Logger) *Once {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Once{
		locator: locator,
		timeout: timeout,
		logger:  logger.With("component", "geo"),
	}
}

// Lookup returns the location or nil when it could not be determined
func (o *Once) Lookup(ctx context.Context) *Location {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return o.loc
	}

	lookupCtx, cancel := context.WithTimeout(ctx, o.timeout)
	loc, err := o.locator.Locate(lookupCtx)
	cancel()
	switch {
	case err != nil && ctx.Err() != nil:
		o.logger.Debug("location lookup abandoned", "error", err)
		return nil
	case err != nil:
		o.logger.Debug("location lookup failed", "error", err)
	default:
		o.logger.Debug("location resolved", "latitude", loc.Latitude, "longitude", loc.Longitude)
		o.loc = loc
	}
	o.done = true
	return o.loc
}
