package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/zatekoja/carefinder/internal/domain/entities"
)

const defaultPostcodesURL = "https://api.postcodes.io"

// ErrNoResult means the provider answered but had nothing for the query.
var ErrNoResult = errors.New("no result")

// BreakerSettings controls the circuit breaker placed in front of each provider.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	Cooldown            time.Duration
}

func newBreaker(name string, s BreakerSettings) *gobreaker.CircuitBreaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
	})
}

// PostcodesClient talks to a postcodes.io compatible service.
type PostcodesClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewPostcodesClientWithOptions creates a client; an empty baseURL means the public API.
// Timeouts come from the caller's context, not the HTTP client.
func NewPostcodesClientWithOptions(baseURL string, httpClient *http.Client, breaker BreakerSettings) *PostcodesClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultPostcodesURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &PostcodesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breaker:    newBreaker("postcodes.io", breaker),
	}
}

// LookupPostcode resolves a full postcode given without spaces.
func (c *PostcodesClient) LookupPostcode(ctx context.Context, compact string) (entities.Coordinate, error) {
	var payload struct {
		Result *postcodeResult `json:"result"`
	}
	if err := c.get(ctx, "/postcodes/"+url.PathEscape(compact), nil, &payload); err != nil {
		return entities.Coordinate{}, err
	}
	return payload.Result.coordinate()
}

// SearchPostcodes runs a free-text postcode search and returns the first hit.
func (c *PostcodesClient) SearchPostcodes(ctx context.Context, query string) (entities.Coordinate, error) {
	var payload struct {
		Result []postcodeResult `json:"result"`
	}
	params := url.Values{"q": []string{query}, "limit": []string{"1"}}
	if err := c.get(ctx, "/postcodes", params, &payload); err != nil {
		return entities.Coordinate{}, err
	}
	if len(payload.Result) == 0 {
		return entities.Coordinate{}, ErrNoResult
	}
	return payload.Result[0].coordinate()
}

// LookupOutcode returns the centroid of an outward code.
func (c *PostcodesClient) LookupOutcode(ctx context.Context, outcode string) (entities.Coordinate, error) {
	var payload struct {
		Result *postcodeResult `json:"result"`
	}
	if err := c.get(ctx, "/outcodes/"+url.PathEscape(outcode), nil, &payload); err != nil {
		return entities.Coordinate{}, err
	}
	return payload.Result.coordinate()
}

// get performs the request through the breaker. A 404 is an answer, not a provider
// failure, so it does not count towards tripping the breaker.
func (c *PostcodesClient) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	notFound := false
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build postcodes request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("postcodes request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			notFound = true
			return nil, nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("postcodes request returned status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode postcodes response: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	if notFound {
		return ErrNoResult
	}
	return nil
}

type postcodeResult struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// coordinate rejects missing and zero coordinates; postcodes.io reports unplaceable
// codes with null or 0 values.
func (r *postcodeResult) coordinate() (entities.Coordinate, error) {
	if r == nil || r.Latitude == nil || r.Longitude == nil {
		return entities.Coordinate{}, ErrNoResult
	}
	if *r.Latitude == 0 || *r.Longitude == 0 {
		return entities.Coordinate{}, ErrNoResult
	}
	c := entities.Coordinate{Lat: *r.Latitude, Lon: *r.Longitude}
	if err := c.Validate(); err != nil {
		return entities.Coordinate{}, fmt.Errorf("postcodes returned invalid coordinate: %w", err)
	}
	return c, nil
}
