package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/zatekoja/carefinder/internal/domain/entities"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent    = "nhs-care-finder/1.0"
)

// NominatimClient is the general-purpose free-text geocoder used as the last resort.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewNominatimClientWithOptions creates a client. Nominatim's usage policy requires an
// identifying User-Agent.
func NewNominatimClientWithOptions(baseURL, userAgent string, httpClient *http.Client, breaker BreakerSettings) *NominatimClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultNominatimURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
		breaker:    newBreaker("nominatim", breaker),
	}
}

// Search returns the first hit for query.
func (c *NominatimClient) Search(ctx context.Context, query string) (entities.Coordinate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build nominatim request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("nominatim request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("nominatim request returned status %d", resp.StatusCode)
		}

		var hits []nominatimHit
		if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
			return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
		}
		return hits, nil
	})
	if err != nil {
		return entities.Coordinate{}, err
	}

	hits, _ := result.([]nominatimHit)
	if len(hits) == 0 {
		return entities.Coordinate{}, ErrNoResult
	}
	return hits[0].coordinate()
}

type nominatimHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (h nominatimHit) coordinate() (entities.Coordinate, error) {
	if h.Lat == "" || h.Lon == "" {
		return entities.Coordinate{}, ErrNoResult
	}
	lat, err := strconv.ParseFloat(h.Lat, 64)
	if err != nil {
		return entities.Coordinate{}, fmt.Errorf("invalid nominatim latitude %q: %w", h.Lat, err)
	}
	lon, err := strconv.ParseFloat(h.Lon, 64)
	if err != nil {
		return entities.Coordinate{}, fmt.Errorf("invalid nominatim longitude %q: %w", h.Lon, err)
	}
	c := entities.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return entities.Coordinate{}, fmt.Errorf("nominatim returned invalid coordinate: %w", err)
	}
	return c, nil
}
