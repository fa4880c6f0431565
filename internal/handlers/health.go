package handlers

import "net/http"

// HealthHandler answers liveness probes.
type HealthHandler struct{}

// Handle implements GET /healthz. The probe reuses the response envelope so
// monitoring sees the same shape as the API proper.
func (HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"}, "service healthy")
}
