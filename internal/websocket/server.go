// Package websocket serves the interactive chat endpoint. Each connection
// carries JSON chat requests from the client and receives generated tokens
// back one message at a time.
package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nfsfurkandogan/biocadapp/internal/auth"
	"github.com/nfsfurkandogan/biocadapp/internal/database"
	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/model"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

const (
	readTimeout  = 300 * time.Second
	writeTimeout = 10 * time.Second
	maxMessage   = 1 << 20 // 1MB of JSON per chat request
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
	EnableCompression: true,
}

// chatMessage is one request from the client.
type chatMessage struct {
	Message string         `json:"message"`
	History []prompts.Turn `json:"history"`
	Token   string         `json:"token"`
}

// Server manages websocket chat connections.
type Server struct {
	logger      *logging.Logger
	gen         model.Generator
	db          *database.DB
	authEnabled bool
	secretKey   []byte

	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	connections map[*websocket.Conn]bool
}

// NewServer creates a websocket chat server.
func NewServer(gen model.Generator, db *database.DB, logger *logging.Logger, authEnabled bool, secretKey string) *Server {
	return &Server{
		logger:      logger,
		gen:         gen,
		db:          db,
		authEnabled: authEnabled,
		secretKey:   []byte(secretKey),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		connections: make(map[*websocket.Conn]bool),
	}
}

// Run tracks the connection registry. Intended to run in its own goroutine.
func (s *Server) Run() {
	for {
		select {
		case conn := <-s.register:
			s.connections[conn] = true
			s.logger.WithField("connections", len(s.connections)).Info("New WebSocket connection registered")

		case conn := <-s.unregister:
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				s.logger.WithField("connections", len(s.connections)).Info("WebSocket connection unregistered")
			}
		}
	}
}

// HandleWebSocket upgrades the request and serves chat requests until the
// client disconnects.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithField("error", err).Error("Error upgrading connection")
		return
	}
	defer conn.Close()

	s.register <- conn
	defer func() { s.unregister <- conn }()

	conn.SetReadLimit(maxMessage)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	var writeMu sync.Mutex
	send := func(payload map[string]interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.WithField("error", err).Error("Error reading message")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg chatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.WithField("error", err).Warn("Invalid chat message")
			send(map[string]interface{}{"type": "error", "message": "Invalid message format"})
			continue
		}
		if msg.Message == "" {
			send(map[string]interface{}{"type": "error", "message": "Message is required"})
			continue
		}

		userID, err := s.resolveUser(msg.Token)
		if err != nil {
			send(map[string]interface{}{"type": "error", "message": "Unauthorized: " + err.Error()})
			continue
		}

		s.logger.InfoThrottled("ws_chat", 10*time.Second, "Processing chat message", logrus.Fields{
			"history_turns": len(msg.History),
			"message_len":   len(msg.Message),
		})

		prompt := prompts.Chat(msg.Message, msg.History)
		start := time.Now()

		err = s.gen.GenerateStream(r.Context(), prompt, "", func(token string) error {
			return send(map[string]interface{}{"type": "token", "content": token})
		})
		if err != nil {
			s.logger.WithField("error", err).Error("WebSocket generation failed")
			send(map[string]interface{}{"type": "error", "message": "Generation failed"})
			continue
		}

		send(map[string]interface{}{
			"type":               "done",
			"processing_time_ms": time.Since(start).Milliseconds(),
		})

		if s.db != nil {
			go func(uid *int64, summary string) {
				if _, err := s.db.RecordAnalysis(uid, database.KindChat, summary); err != nil {
					s.logger.WithField("error", err).Warn("Failed to record chat analysis")
				}
			}(userID, truncate(msg.Message, 160))
		}
	}
}

// resolveUser validates an optional token. With auth disabled, or without a
// token, the chat is anonymous.
func (s *Server) resolveUser(tokenString string) (*int64, error) {
	if !s.authEnabled || tokenString == "" {
		return nil, nil
	}

	claims := &auth.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &claims.UserID, nil
}

func truncate(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}
