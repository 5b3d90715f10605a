package api

import (
	"encoding/json"
	"net/http"

	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

// ExamplesHandler serves example questions and the medical term dictionary.
type ExamplesHandler struct {
	logger *logging.Logger
}

// NewExamplesHandler creates a new ExamplesHandler.
func NewExamplesHandler(logger *logging.Logger) *ExamplesHandler {
	return &ExamplesHandler{logger: logger}
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *ExamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	language := r.URL.Query().Get("language")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"questions":     prompts.ExampleQuestions(language),
		"medical_terms": prompts.MedicalTerms(),
	})
}
