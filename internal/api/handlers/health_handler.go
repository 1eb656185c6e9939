package handlers

import "net/http"

// HealthHandler serves the liveness probe and the service banner.
type HealthHandler struct {
	name string
}

// NewHealthHandler creates a health handler reporting name in the banner.
func NewHealthHandler(name string) *HealthHandler {
	return &HealthHandler{name: name}
}

// Banner handles GET /
func (h *HealthHandler) Banner(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"name": h.name,
	})
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		return
	}
}
