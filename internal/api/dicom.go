package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/dicomimage"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/medimage"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

// DicomHandler accepts a DICOM file upload, converts it to an 8-bit RGB
// image, and runs the analysis.
type DicomHandler struct {
	gen         model.Generator
	conv        *dicomimage.Converter
	pre         *medimage.Preprocessor
	db          *database.DB
	logger      *logging.Logger
	maxUpload   int64
	authEnabled bool
	secretKey   []byte
}

// NewDicomHandler creates a new DicomHandler.
func NewDicomHandler(gen model.Generator, conv *dicomimage.Converter, pre *medimage.Preprocessor, db *database.DB, logger *logging.Logger, maxUpload int64, authEnabled bool, secretKey string) *DicomHandler {
	return &DicomHandler{
		gen:         gen,
		conv:        conv,
		pre:         pre,
		db:          db,
		logger:      logger,
		maxUpload:   maxUpload,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
	}
}

// ServeHTTP routes requests to the appropriate handler method.
func (h *DicomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, `{"error":"Upload too large"}`, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, `{"error":"Invalid multipart form"}`, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"DICOM file is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	imageType := r.FormValue("image_type")
	if imageType == "" {
		imageType = "ctmr"
	}
	if !prompts.ValidImageType(imageType) {
		http.Error(w, `{"error":"Unknown image type"}`, http.StatusBadRequest)
		return
	}
	analysisType := r.FormValue("analysis_type")
	question := r.FormValue("question")

	converted, err := h.conv.Convert(file, header.Size)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"error":    err,
			"filename": header.Filename,
		}).Warn("DICOM conversion failed")
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	processed, err := h.pre.ValidateAndProcess(converted)
	if err != nil {
		if clientImageError(err) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.WithField("error", err).Error("DICOM preprocessing failed")
		http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
		return
	}

	imageB64, err := medimage.RawPNGBase64(processed)
	if err != nil {
		h.logger.WithField("error", err).Error("DICOM encoding failed")
		http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
		return
	}
	preview, err := medimage.EncodePNGBase64(converted)
	if err != nil {
		h.logger.WithField("error", err).Error("DICOM preview encoding failed")
		http.Error(w, `{"error":"Image preprocessing failed"}`, http.StatusInternalServerError)
		return
	}

	prompt := prompts.MedicalImage(imageType, analysisType, question)
	userID := optionalUserID(r, h.authEnabled, h.secretKey)

	text, err := h.gen.Generate(r.Context(), prompt, imageB64)
	if err != nil {
		h.logger.WithField("error", err).Error("DICOM generation failed")
		writeJSONError(w, "Generation failed", generateStatus(err))
		return
	}

	recordAnalysis(h.db, h.logger, userID, database.KindDicom, summarize(header.Filename+": "+prompt))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"analysis":   text,
		"preview":    preview,
		"image_type": imageType,
		"width":      converted.Bounds().Dx(),
		"height":     converted.Bounds().Dy(),
	})
}
