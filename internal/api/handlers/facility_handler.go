package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/carefinder/internal/domain/entities"
	"github.com/zatekoja/carefinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/carefinder/pkg/errors"
)

// FacilityService is the behaviour the facility handler needs from the service layer.
type FacilityService interface {
	Search(ctx context.Context, query entities.SearchQuery) (*entities.SearchResponse, error)
	GetByID(ctx context.Context, id string) (*entities.Facility, error)
}

// FacilityHandler handles facility-related HTTP requests
type FacilityHandler struct {
	service       FacilityService
	searchTimeout time.Duration
}

// NewFacilityHandler creates a new facility handler. A zero searchTimeout disables
// the outer deadline.
func NewFacilityHandler(service FacilityService, searchTimeout time.Duration) *FacilityHandler {
	return &FacilityHandler{
		service:       service,
		searchTimeout: searchTimeout,
	}
}

// searchQueryEcho repeats the request parameters alongside the resolved origin.
type searchQueryEcho struct {
	Postcode *string             `json:"postcode"`
	Lat      *float64            `json:"lat"`
	Lon      *float64            `json:"lon"`
	Type     *string             `json:"type"`
	Radius   float64             `json:"radius"`
	Origin   entities.Coordinate `json:"origin"`
}

// SearchPlacesResponse is the body of GET /places.
type SearchPlacesResponse struct {
	Query   searchQueryEcho         `json:"query"`
	Count   int                     `json:"count"`
	Results []entities.SearchResult `json:"results"`
}

// SearchPlaces handles GET /places
func (h *FacilityHandler) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	query, echo, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if h.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.searchTimeout)
		defer cancel()
	}

	resp, err := h.service.Search(ctx, query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	echo.Radius = resp.RadiusKm
	echo.Origin = resp.Origin
	respondWithJSON(w, http.StatusOK, SearchPlacesResponse{
		Query:   echo,
		Count:   resp.Count,
		Results: resp.Results,
	})
}

// GetPlace handles GET /places/{id}
func (h *FacilityHandler) GetPlace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusNotFound, "Place not found")
		return
	}

	facility, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, facility)
}

func parseSearchQuery(values url.Values) (entities.SearchQuery, searchQueryEcho, error) {
	var (
		q    entities.SearchQuery
		echo searchQueryEcho
	)

	postcode := strings.TrimSpace(values.Get("postcode"))
	latRaw := strings.TrimSpace(values.Get("lat"))
	lonRaw := strings.TrimSpace(values.Get("lon"))

	switch {
	case postcode != "" && (latRaw != "" || lonRaw != ""):
		return q, echo, apperrors.NewValidationError("Provide either postcode or lat & lon, not both")
	case postcode != "":
		q.OriginText = postcode
		echo.Postcode = &postcode
	case latRaw != "" && lonRaw != "":
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return q, echo, apperrors.NewValidationError("Invalid lat")
		}
		lon, err := strconv.ParseFloat(lonRaw, 64)
		if err != nil {
			return q, echo, apperrors.NewValidationError("Invalid lon")
		}
		q.OriginCoord = &entities.Coordinate{Lat: lat, Lon: lon}
		echo.Lat, echo.Lon = &lat, &lon
	default:
		return q, echo, apperrors.NewValidationError("Provide postcode or lat & lon")
	}

	if raw := strings.TrimSpace(values.Get("type")); raw != "" {
		category, err := entities.ParseCategory(raw)
		if err != nil {
			return q, echo, apperrors.NewValidationError(fmt.Sprintf("Unknown type: %s", raw))
		}
		q.Category = category
		c := string(category)
		echo.Type = &c
	}

	if raw := strings.TrimSpace(values.Get("radius")); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			return q, echo, apperrors.NewValidationError("Invalid radius")
		}
		q.RadiusKm = radius
	}

	open, err := parseFlag(values, "open")
	if err != nil {
		return q, echo, err
	}
	q.OpenNow = open

	for _, name := range []string{"wheelchair", "parking", "xray"} {
		on, err := parseFlag(values, name)
		if err != nil {
			return q, echo, err
		}
		if on {
			q.Features = append(q.Features, name)
		}
	}

	if raw := strings.TrimSpace(values.Get("sort")); raw != "" {
		q.Sort = entities.SortKey(strings.ToLower(raw))
	}

	return q, echo, nil
}

func parseFlag(values url.Values, name string) (bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return false, nil
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError(fmt.Sprintf("Invalid %s flag", name))
	}
	return on, nil
}

// statusClientClosedRequest is the nginx convention for a client that disconnected
// before the response was ready.
const statusClientClosedRequest = 499

// writeError maps service errors onto status codes. Client errors carry their
// message; anything unexpected is logged and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperrors.As(err); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation, apperrors.ErrorTypeLocationNotFound:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
			return
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
			return
		}
	}

	logger := observability.LoggerFromContext(r.Context())
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn().Err(err).Str("path", r.URL.Path).Msg("request timed out")
		respondWithError(w, http.StatusGatewayTimeout, "Search timed out")
		return
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug().Err(err).Str("path", r.URL.Path).Msg("client went away")
		respondWithError(w, statusClientClosedRequest, "request cancelled")
		return
	}

	logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
