package api

import (
	"encoding/json"
	"net/http"

	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/medimage"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

// MedicalImageHandler analyzes CT/MR, fundus, dermoscopy, histopathology and
// lab result images.
type MedicalImageHandler struct {
	gen         model.Generator
	pre         *medimage.Preprocessor
	db          *database.DB
	logger      *logging.Logger
	authEnabled bool
	secretKey   []byte
}

// NewMedicalImageHandler creates a new MedicalImageHandler.
func NewMedicalImageHandler(gen model.Generator, pre *medimage.Preprocessor, db *database.DB, logger *logging.Logger, authEnabled bool, secretKey string) *MedicalImageHandler {
	return &MedicalImageHandler{
		gen:         gen,
		pre:         pre,
		db:          db,
		logger:      logger,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
	}
}

type medicalImageRequest struct {
	Image        string `json:"image"`
	ImageType    string `json:"image_type"`
	AnalysisType string `json:"analysis_type"`
	Question     string `json:"question"`
	Stream       bool   `json:"stream"`
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *MedicalImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	var req medicalImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Image == "" {
		http.Error(w, `{"error":"Image is required"}`, http.StatusBadRequest)
		return
	}
	if req.ImageType != "" && !prompts.ValidImageType(req.ImageType) {
		http.Error(w, `{"error":"Unknown image type"}`, http.StatusBadRequest)
		return
	}

	img, err := medimage.DecodeBase64Image(req.Image)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	processed, err := h.pre.ValidateAndProcess(img)
	if err != nil {
		if clientImageError(err) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.WithField("error", err).Error("Medical image preprocessing failed")
		http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
		return
	}
	imageB64, err := medimage.RawPNGBase64(processed)
	if err != nil {
		h.logger.WithField("error", err).Error("Medical image encoding failed")
		http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
		return
	}

	prompt := prompts.MedicalImage(req.ImageType, req.AnalysisType, req.Question)
	userID := optionalUserID(r, h.authEnabled, h.secretKey)

	if req.Stream {
		_, started, err := streamGenerate(r.Context(), w, h.gen, prompt, imageB64)
		if err != nil {
			h.logger.WithField("error", err).Error("Medical image generation failed")
			if !started {
				writeJSONError(w, "Generation failed", generateStatus(err))
			}
			return
		}
		recordAnalysis(h.db, h.logger, userID, database.KindMedicalImage, summarize(prompt))
		return
	}

	text, err := h.gen.Generate(r.Context(), prompt, imageB64)
	if err != nil {
		h.logger.WithField("error", err).Error("Medical image generation failed")
		writeJSONError(w, "Generation failed", generateStatus(err))
		return
	}

	recordAnalysis(h.db, h.logger, userID, database.KindMedicalImage, summarize(prompt))
	json.NewEncoder(w).Encode(map[string]string{
		"analysis":   text,
		"image_type": req.ImageType,
	})
}
