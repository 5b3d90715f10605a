package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nfsfurkandogan/biocadapp/internal/logging"
)

type fakeGen struct {
	tokens []string
}

func (f *fakeGen) GenerateStream(ctx context.Context, prompt, imageB64 string, fn func(string) error) error {
	for _, tok := range f.tokens {
		if err := fn(tok); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGen) Generate(ctx context.Context, prompt, imageB64 string) (string, error) {
	return strings.Join(f.tokens, ""), nil
}

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	go s.Run()
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestChatStreamsTokens(t *testing.T) {
	s := NewServer(&fakeGen{tokens: []string{"The", " answer."}}, nil, logging.NewLogger("error", "text", ""), false, "")
	conn := dialTestServer(t, s)

	if err := conn.WriteJSON(map[string]interface{}{"message": "What is sepsis?"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var tokens []string
	for {
		msg := readMessage(t, conn)
		switch msg["type"] {
		case "token":
			tokens = append(tokens, msg["content"].(string))
		case "done":
			if got := strings.Join(tokens, ""); got != "The answer." {
				t.Errorf("streamed text = %q", got)
			}
			return
		default:
			t.Fatalf("unexpected message %v", msg)
		}
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s := NewServer(&fakeGen{}, nil, logging.NewLogger("error", "text", ""), false, "")
	conn := dialTestServer(t, s)

	if err := conn.WriteJSON(map[string]interface{}{"message": ""}); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != "error" {
		t.Errorf("message type = %v, want error", msg["type"])
	}
}

func TestChatMultipleRequestsOnOneConnection(t *testing.T) {
	s := NewServer(&fakeGen{tokens: []string{"ok"}}, nil, logging.NewLogger("error", "text", ""), false, "")
	conn := dialTestServer(t, s)

	for i := 0; i < 3; i++ {
		if err := conn.WriteJSON(map[string]interface{}{"message": "ping"}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		var sawDone bool
		for !sawDone {
			msg := readMessage(t, conn)
			if msg["type"] == "done" {
				sawDone = true
			}
		}
	}
}
