package api

import (
	"encoding/json"
	"image"
	"net/http"

	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/medimage"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

// CompareHandler compares two studies, for example before and after
// treatment. Both images are preprocessed and joined side by side so the
// engine sees them in a single input.
type CompareHandler struct {
	gen         model.Generator
	pre         *medimage.Preprocessor
	db          *database.DB
	logger      *logging.Logger
	authEnabled bool
	secretKey   []byte
}

// NewCompareHandler creates a new CompareHandler.
func NewCompareHandler(gen model.Generator, pre *medimage.Preprocessor, db *database.DB, logger *logging.Logger, authEnabled bool, secretKey string) *CompareHandler {
	return &CompareHandler{
		gen:         gen,
		pre:         pre,
		db:          db,
		logger:      logger,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
	}
}

type compareRequest struct {
	Image1         string `json:"image1"`
	Image2         string `json:"image2"`
	ComparisonType string `json:"comparison_type"`
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *CompareHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Image1 == "" || req.Image2 == "" {
		http.Error(w, `{"error":"Both images are required"}`, http.StatusBadRequest)
		return
	}

	canvases := make([]*image.RGBA, 0, 2)
	for _, payload := range []string{req.Image1, req.Image2} {
		img, err := medimage.DecodeBase64Image(payload)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		canvas, err := h.pre.ValidateAndProcess(img)
		if err != nil {
			if clientImageError(err) {
				writeJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.logger.WithField("error", err).Error("Comparison preprocessing failed")
			http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
			return
		}
		canvases = append(canvases, canvas)
	}

	combined := medimage.SideBySide(canvases[0], canvases[1])
	imageB64, err := medimage.RawPNGBase64(combined)
	if err != nil {
		h.logger.WithField("error", err).Error("Comparison encoding failed")
		http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
		return
	}

	prompt := prompts.Comparison(req.ComparisonType)
	userID := optionalUserID(r, h.authEnabled, h.secretKey)

	text, err := h.gen.Generate(r.Context(), prompt, imageB64)
	if err != nil {
		h.logger.WithField("error", err).Error("Comparison generation failed")
		writeJSONError(w, "Generation failed", generateStatus(err))
		return
	}

	recordAnalysis(h.db, h.logger, userID, database.KindCompare, summarize(prompt))
	json.NewEncoder(w).Encode(map[string]string{
		"comparison":      text,
		"comparison_type": req.ComparisonType,
	})
}
