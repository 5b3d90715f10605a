package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
)

// HealthHandler reports service and engine status.
type HealthHandler struct {
	engine *model.Engine
	logger *logging.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(engine *model.Engine, logger *logging.Logger) *HealthHandler {
	return &HealthHandler{engine: engine, logger: logger}
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":       "healthy",
		"engine_state": h.engine.State().String(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
