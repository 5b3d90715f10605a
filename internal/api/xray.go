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

// XRayHandler analyzes an uploaded chest X-ray image.
type XRayHandler struct {
	gen         model.Generator
	pre         *medimage.Preprocessor
	db          *database.DB
	logger      *logging.Logger
	authEnabled bool
	secretKey   []byte
}

// NewXRayHandler creates a new XRayHandler.
func NewXRayHandler(gen model.Generator, pre *medimage.Preprocessor, db *database.DB, logger *logging.Logger, authEnabled bool, secretKey string) *XRayHandler {
	return &XRayHandler{
		gen:         gen,
		pre:         pre,
		db:          db,
		logger:      logger,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
	}
}

type xrayRequest struct {
	Image           string `json:"image"`
	AnalysisType    string `json:"analysis_type"`
	Language        string `json:"language"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
	ClinicalHistory string `json:"clinical_history"`
	Stream          bool   `json:"stream"`
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *XRayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	var req xrayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Image == "" {
		http.Error(w, `{"error":"Image is required"}`, http.StatusBadRequest)
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
		h.logger.WithField("error", err).Error("X-ray preprocessing failed")
		http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
		return
	}
	imageB64, err := medimage.RawPNGBase64(processed)
	if err != nil {
		h.logger.WithField("error", err).Error("X-ray encoding failed")
		http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
		return
	}

	prompt := prompts.PatientContext(
		prompts.XRay(req.AnalysisType, req.Language),
		req.Age, req.Gender, req.ClinicalHistory,
	)
	userID := optionalUserID(r, h.authEnabled, h.secretKey)

	if req.Stream {
		_, started, err := streamGenerate(r.Context(), w, h.gen, prompt, imageB64)
		if err != nil {
			h.logger.WithField("error", err).Error("X-ray generation failed")
			if !started {
				writeJSONError(w, "Generation failed", generateStatus(err))
			}
			return
		}
		recordAnalysis(h.db, h.logger, userID, database.KindXRay, summarize(prompt))
		return
	}

	text, err := h.gen.Generate(r.Context(), prompt, imageB64)
	if err != nil {
		h.logger.WithField("error", err).Error("X-ray generation failed")
		writeJSONError(w, "Generation failed", generateStatus(err))
		return
	}

	recordAnalysis(h.db, h.logger, userID, database.KindXRay, summarize(prompt))
	json.NewEncoder(w).Encode(map[string]string{
		"analysis":      text,
		"analysis_type": req.AnalysisType,
	})
}
