package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHandler(db, "test-secret", logging.NewLogger("error", "text", ""))
}

func postJSON(t *testing.T, fn http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h.Register, LoginRequest{Username: "ayse", Password: "correct-horse"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, h.Login, LoginRequest{Username: "ayse", Password: "correct-horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("empty token")
	}

	// Token must round-trip through the request helper.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	userID, err := GetUserIDFromRequest(req, h.GetSecretKey())
	if err != nil {
		t.Fatalf("GetUserIDFromRequest: %v", err)
	}
	if userID != resp.UserID {
		t.Errorf("userID = %d, want %d", userID, resp.UserID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := testHandler(t)

	if rec := postJSON(t, h.Register, LoginRequest{Username: "ayse", Password: "correct-horse"}); rec.Code != http.StatusCreated {
		t.Fatalf("Register status = %d", rec.Code)
	}
	if rec := postJSON(t, h.Login, LoginRequest{Username: "ayse", Password: "wrong"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("Login status = %d, want 401", rec.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	h := testHandler(t)
	if rec := postJSON(t, h.Login, LoginRequest{Username: "ghost", Password: "whatever"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("Login status = %d, want 401", rec.Code)
	}
}

func TestRegisterRejectsShortCredentials(t *testing.T) {
	h := testHandler(t)
	if rec := postJSON(t, h.Register, LoginRequest{Username: "ab", Password: "longenough"}); rec.Code != http.StatusBadRequest {
		t.Errorf("short username status = %d, want 400", rec.Code)
	}
	if rec := postJSON(t, h.Register, LoginRequest{Username: "valid", Password: "short"}); rec.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d, want 400", rec.Code)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	h := testHandler(t)
	if rec := postJSON(t, h.Register, LoginRequest{Username: "ayse", Password: "correct-horse"}); rec.Code != http.StatusCreated {
		t.Fatalf("Register status = %d", rec.Code)
	}
	if rec := postJSON(t, h.Register, LoginRequest{Username: "ayse", Password: "other-password"}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestGetUserIDFromRequestRejectsBadTokens(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := GetUserIDFromRequest(req, []byte("secret")); err == nil {
		t.Error("missing header accepted")
	}

	req.Header.Set("Authorization", "Bearer not-a-jwt")
	if _, err := GetUserIDFromRequest(req, []byte("secret")); err == nil {
		t.Error("garbage token accepted")
	}
}
