package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nfsfurkandogan/biocadapp/internal/auth"
	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
)

// HistoryHandler lists recent analysis records. When auth is enabled the
// endpoint requires a valid token.
type HistoryHandler struct {
	db          *database.DB
	logger      *logging.Logger
	authEnabled bool
	secretKey   []byte
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(db *database.DB, logger *logging.Logger, authEnabled bool, secretKey string) *HistoryHandler {
	return &HistoryHandler{
		db:          db,
		logger:      logger,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
	}
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	if h.authEnabled {
		if _, err := auth.GetUserIDFromRequest(r, h.secretKey); err != nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	analyses, err := h.db.RecentAnalyses(limit)
	if err != nil {
		h.logger.WithField("error", err).Error("Failed to get history")
		http.Error(w, `{"error":"Failed to get history"}`, http.StatusInternalServerError)
		return
	}
	if analyses == nil {
		analyses = []database.Analysis{}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"analyses": analyses})
}
