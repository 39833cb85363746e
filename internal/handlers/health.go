package handlers

import (
	"net/http"
	"time"
)

// HealthInfo describes how the server is wired
type HealthInfo struct {
	EventsMode     string `json:"eventsMode"`
	OrderMode      string `json:"orderMode"`
	StateStore     string `json:"stateStore"`
	ReceiptArchive string `json:"receiptArchive"`
}

// HealthHandler reports liveness
type HealthHandler struct {
	info    HealthInfo
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(info HealthInfo) *HealthHandler {
	return &HealthHandler{info: info, started: time.Now()}
}

// Health returns the server status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"info":   h.info,
	})
}
