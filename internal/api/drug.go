package api

import (
	"encoding/json"
	"net/http"

	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

// DrugHandler answers drug information queries.
type DrugHandler struct {
	gen         model.Generator
	db          *database.DB
	logger      *logging.Logger
	authEnabled bool
	secretKey   []byte
}

// NewDrugHandler creates a new DrugHandler.
func NewDrugHandler(gen model.Generator, db *database.DB, logger *logging.Logger, authEnabled bool, secretKey string) *DrugHandler {
	return &DrugHandler{
		gen:         gen,
		db:          db,
		logger:      logger,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
	}
}

type drugRequest struct {
	DrugName  string `json:"drug_name"`
	QueryType string `json:"query_type"`
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *DrugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req drugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.DrugName == "" {
		http.Error(w, `{"error":"Drug name is required"}`, http.StatusBadRequest)
		return
	}

	prompt := prompts.DrugInfo(req.DrugName, req.QueryType)
	userID := optionalUserID(r, h.authEnabled, h.secretKey)

	text, err := h.gen.Generate(r.Context(), prompt, "")
	if err != nil {
		h.logger.WithField("error", err).Error("Drug info generation failed")
		writeJSONError(w, "Generation failed", generateStatus(err))
		return
	}

	recordAnalysis(h.db, h.logger, userID, database.KindDrugInfo, summarize(req.DrugName))
	json.NewEncoder(w).Encode(map[string]string{
		"drug_name":   req.DrugName,
		"query_type":  req.QueryType,
		"information": text,
	})
}
