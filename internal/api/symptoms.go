package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

// symptomDisclaimer accompanies every symptom analysis response.
const symptomDisclaimer = "This analysis is for informational purposes only and does not replace professional medical advice. Seek immediate care for severe or worsening symptoms."

// SymptomHandler produces a triage-style assessment from reported symptoms.
type SymptomHandler struct {
	gen         model.Generator
	db          *database.DB
	logger      *logging.Logger
	authEnabled bool
	secretKey   []byte
}

// NewSymptomHandler creates a new SymptomHandler.
func NewSymptomHandler(gen model.Generator, db *database.DB, logger *logging.Logger, authEnabled bool, secretKey string) *SymptomHandler {
	return &SymptomHandler{
		gen:         gen,
		db:          db,
		logger:      logger,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
	}
}

type symptomRequest struct {
	Symptoms []string `json:"symptoms"`
	Age      int      `json:"age"`
	Gender   string   `json:"gender"`
	Duration string   `json:"duration"`
	Severity string   `json:"severity"`
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *SymptomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	var req symptomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if len(req.Symptoms) == 0 {
		http.Error(w, `{"error":"At least one symptom is required"}`, http.StatusBadRequest)
		return
	}

	prompt := prompts.SymptomAnalysis(req.Symptoms, req.Age, req.Gender, req.Duration, req.Severity)
	userID := optionalUserID(r, h.authEnabled, h.secretKey)

	text, err := h.gen.Generate(r.Context(), prompt, "")
	if err != nil {
		h.logger.WithField("error", err).Error("Symptom analysis generation failed")
		writeJSONError(w, "Generation failed", generateStatus(err))
		return
	}

	recordAnalysis(h.db, h.logger, userID, database.KindSymptom, summarize(strings.Join(req.Symptoms, ", ")))
	json.NewEncoder(w).Encode(map[string]string{
		"analysis":   text,
		"disclaimer": symptomDisclaimer,
	})
}
