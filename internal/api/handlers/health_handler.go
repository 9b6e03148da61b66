package handlers

import "net/http"

// HealthHandler reports liveness plus static facts gathered at startup.
type HealthHandler struct {
	info map[string]any
}

func NewHealthHandler(info map[string]any) *HealthHandler {
	return &HealthHandler{info: info}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	for k, v := range h.info {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}
