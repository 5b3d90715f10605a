package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Handler struct {
	db        *database.DB
	secretKey []byte
	logger    *logging.Logger
}

func NewHandler(db *database.DB, secretKey string, logger *logging.Logger) *Handler {
	return &Handler{
		db:        db,
		secretKey: []byte(secretKey),
		logger:    logger,
	}
}

func (h *Handler) GetSecretKey() []byte {
	return h.secretKey
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
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

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	// Get user
	user, err := h.db.GetUserByUsername(req.Username)
	if err != nil {
		h.logger.WithField("error", err).Error("Login: Database error looking up user")
		http.Error(w, `{"error":"Database error"}`, http.StatusInternalServerError)
		return
	}
	if user == nil {
		h.logger.WithField("username", req.Username).Warn("Login: User not found")
		http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	// Verify password
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"username": req.Username,
			"reason":   "Password mismatch",
		}).Warn("Login failed")
		http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	h.logger.WithField("username", req.Username).Info("User logged in successfully")

	tokenString, err := h.issueToken(user)
	if err != nil {
		http.Error(w, `{"error":"Could not generate token"}`, http.StatusInternalServerError)
		return
	}

	resp := LoginResponse{
		Token:    tokenString,
		UserID:   user.ID,
		Username: user.Username,
		Message:  "Login successful",
	}

	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
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

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if len(req.Username) < 3 || len(req.Password) < 8 {
		http.Error(w, `{"error":"Username must be at least 3 characters and password at least 8"}`, http.StatusBadRequest)
		return
	}

	existing, err := h.db.GetUserByUsername(req.Username)
	if err != nil {
		h.logger.WithField("error", err).Error("Register: Database error looking up user")
		http.Error(w, `{"error":"Database error"}`, http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, `{"error":"Username already taken"}`, http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, `{"error":"Could not hash password"}`, http.StatusInternalServerError)
		return
	}

	user := &database.User{Username: req.Username, PasswordHash: string(hash)}
	id, err := h.db.CreateUser(user)
	if err != nil {
		h.logger.WithField("error", err).Error("Register: Database error creating user")
		http.Error(w, `{"error":"Database error"}`, http.StatusInternalServerError)
		return
	}
	user.ID = id

	h.logger.WithField("username", req.Username).Info("User registered")

	tokenString, err := h.issueToken(user)
	if err != nil {
		http.Error(w, `{"error":"Could not generate token"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(LoginResponse{
		Token:    tokenString,
		UserID:   user.ID,
		Username: user.Username,
		Message:  "Registration successful",
	})
}

func (h *Handler) issueToken(user *database.User) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Issuer:    "biocadapp-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secretKey)
}
