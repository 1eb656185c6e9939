package handlers

import (
	"net/http"
	"strings"

	"github.com/zatekoja/carefinder/internal/domain/providers"
)

// GeolocationHandler handles geolocation endpoints.
type GeolocationHandler struct {
	geocoder providers.Geocoder
}

// NewGeolocationHandler creates a new geolocation handler.
func NewGeolocationHandler(geocoder providers.Geocoder) *GeolocationHandler {
	return &GeolocationHandler{geocoder: geocoder}
}

// Geocode handles GET /geocode?postcode=...
func (h *GeolocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	postcode := strings.TrimSpace(r.URL.Query().Get("postcode"))
	if postcode == "" {
		respondWithError(w, http.StatusBadRequest, "postcode parameter is required")
		return
	}

	coords, err := h.geocoder.Geocode(r.Context(), postcode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"postcode": postcode,
		"lat":      coords.Lat,
		"lon":      coords.Lon,
	})
}
