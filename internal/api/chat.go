package api

import (
	"encoding/json"
	"net/http"

	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

// ChatHandler answers free-text medical questions with optional conversation
// history.
type ChatHandler struct {
	gen         model.Generator
	db          *database.DB
	logger      *logging.Logger
	authEnabled bool
	secretKey   []byte
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(gen model.Generator, db *database.DB, logger *logging.Logger, authEnabled bool, secretKey string) *ChatHandler {
	return &ChatHandler{
		gen:         gen,
		db:          db,
		logger:      logger,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
	}
}

type chatRequest struct {
	Message string         `json:"message"`
	History []prompts.Turn `json:"history"`
	Stream  bool           `json:"stream"`
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, `{"error":"Message is required"}`, http.StatusBadRequest)
		return
	}

	prompt := prompts.Chat(req.Message, req.History)
	userID := optionalUserID(r, h.authEnabled, h.secretKey)

	if req.Stream {
		_, started, err := streamGenerate(r.Context(), w, h.gen, prompt, "")
		if err != nil {
			h.logger.WithField("error", err).Error("Chat generation failed")
			if !started {
				writeJSONError(w, "Generation failed", generateStatus(err))
			}
			return
		}
		recordAnalysis(h.db, h.logger, userID, database.KindChat, summarize(req.Message))
		return
	}

	text, err := h.gen.Generate(r.Context(), prompt, "")
	if err != nil {
		h.logger.WithField("error", err).Error("Chat generation failed")
		writeJSONError(w, "Generation failed", generateStatus(err))
		return
	}

	recordAnalysis(h.db, h.logger, userID, database.KindChat, summarize(req.Message))
	json.NewEncoder(w).Encode(map[string]string{"response": text})
}
