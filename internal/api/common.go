// Package api provides HTTP handlers for the REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/nfsfurkandogan/biocadapp/internal/auth"
	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/medimage"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
)

// writeJSONError writes an error payload with a dynamic message. Handlers use
// literal bodies for fixed messages and this for pipeline errors whose text
// the client should see.
func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// optionalUserID resolves the user behind a request when auth is enabled and
// a valid bearer token is present. Anonymous requests record a null user.
func optionalUserID(r *http.Request, enabled bool, secretKey []byte) *int64 {
	if !enabled {
		return nil
	}
	id, err := auth.GetUserIDFromRequest(r, secretKey)
	if err != nil {
		return nil
	}
	return &id
}

// recordAnalysis logs the analysis to history. Failures are logged and never
// surfaced to the client.
func recordAnalysis(db *database.DB, logger *logging.Logger, userID *int64, kind, summary string) {
	if db == nil {
		return
	}
	if _, err := db.RecordAnalysis(userID, kind, summary); err != nil {
		logger.WithField("error", err).Warn("Failed to record analysis")
	}
}

// streamGenerate streams tokens to the client as chunked plain text, flushing
// after each one. The collected text is returned for history recording. An
// error after the first byte has been written cannot change the status code,
// so callers only map errors returned before output started.
func streamGenerate(ctx context.Context, w http.ResponseWriter, gen model.Generator, prompt, imageB64 string) (string, bool, error) {
	flusher, _ := w.(http.Flusher)

	var sb strings.Builder
	started := false
	err := gen.GenerateStream(ctx, prompt, imageB64, func(token string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			started = true
		}
		sb.WriteString(token)
		if _, werr := io.WriteString(w, token); werr != nil {
			return werr
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	return sb.String(), started, err
}

// generateStatus maps a generation error to an HTTP status code.
func generateStatus(err error) int {
	if errors.Is(err, model.ErrLoadFailed) || errors.Is(err, model.ErrNotReady) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// clientImageError reports whether an error came from the client's image
// payload rather than the service.
func clientImageError(err error) bool {
	return errors.Is(err, medimage.ErrBadEncoding) ||
		errors.Is(err, medimage.ErrTooSmall) ||
		errors.Is(err, medimage.ErrTooLarge)
}

// summarize trims a prompt or response down to a short history summary.
func summarize(s string) string {
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > 160 {
		return string(runes[:160]) + "..."
	}
	return s
}
