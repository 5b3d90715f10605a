package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nfsfurkandogan/biocadapp/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger("error", "text", "")
}

// fakeEngine serves a llama.cpp style completion stream.
func fakeEngine(t *testing.T, tokens []string, capture *completionRequest) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		for i, tok := range tokens {
			stop := i == len(tokens)-1
			fmt.Fprintf(w, "data: {\"content\": %q, \"stop\": %v}\n\n", tok, stop)
		}
	})
	return httptest.NewServer(mux)
}

func TestClientGenerateCollectsStream(t *testing.T) {
	var captured completionRequest
	srv := fakeEngine(t, []string{"The", " lungs", " are", " clear."}, &captured)
	defer srv.Close()

	c := NewClient(srv.URL, Options{MaxTokens: 256, Temperature: 0.7, TopP: 0.9}, 5*time.Second, testLogger())
	got, err := c.Generate(context.Background(), "Analyze this X-ray.", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "The lungs are clear." {
		t.Errorf("Generate = %q", got)
	}
	if !captured.Stream {
		t.Error("request did not ask for streaming")
	}
	if captured.NPredict != 256 {
		t.Errorf("n_predict = %d, want 256", captured.NPredict)
	}
	if !strings.Contains(captured.Prompt, "Analyze this X-ray.") {
		t.Errorf("prompt missing user text: %q", captured.Prompt)
	}
}

func TestClientGenerateStreamCallback(t *testing.T) {
	srv := fakeEngine(t, []string{"a", "b", "c"}, nil)
	defer srv.Close()

	c := NewClient(srv.URL, Options{MaxTokens: 16}, 5*time.Second, testLogger())
	var got []string
	err := c.GenerateStream(context.Background(), "hi", "", func(tok string) error {
		got = append(got, tok)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("tokens = %v", got)
	}
}

func TestClientGenerateStreamCallbackAborts(t *testing.T) {
	srv := fakeEngine(t, []string{"a", "b", "c"}, nil)
	defer srv.Close()

	abort := errors.New("stop here")
	c := NewClient(srv.URL, Options{}, 5*time.Second, testLogger())
	err := c.GenerateStream(context.Background(), "hi", "", func(tok string) error {
		return abort
	})
	if !errors.Is(err, abort) {
		t.Errorf("GenerateStream error = %v, want callback error", err)
	}
}

func TestClientAttachesImagePayload(t *testing.T) {
	var captured completionRequest
	srv := fakeEngine(t, []string{"ok"}, &captured)
	defer srv.Close()

	c := NewClient(srv.URL, Options{}, 5*time.Second, testLogger())
	if _, err := c.Generate(context.Background(), "describe", "aW1hZ2U="); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(captured.ImageData) != 1 || captured.ImageData[0].Data != "aW1hZ2U=" {
		t.Errorf("image_data = %+v", captured.ImageData)
	}
	if !strings.Contains(captured.Prompt, "[img-10]") {
		t.Errorf("prompt missing image marker: %q", captured.Prompt)
	}
}

func TestClientEngineErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{}, 5*time.Second, testLogger())
	if _, err := c.Generate(context.Background(), "hi", ""); err == nil {
		t.Error("Generate accepted a 503 response")
	}
}

func TestEngineLoadAndGenerate(t *testing.T) {
	srv := fakeEngine(t, []string{"pong"}, nil)
	defer srv.Close()

	c := NewClient(srv.URL, Options{}, 5*time.Second, testLogger())
	e := NewEngine(c, 2, testLogger())

	if e.State() != StateUnloaded {
		t.Fatalf("initial state = %v", e.State())
	}
	got, err := e.Generate(context.Background(), "ping", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "pong" {
		t.Errorf("Generate = %q", got)
	}
	if e.State() != StateReady {
		t.Errorf("state after generate = %v, want ready", e.State())
	}

	e.Unload()
	if e.State() != StateUnloaded {
		t.Errorf("state after unload = %v", e.State())
	}
}

func TestEngineLoadFailure(t *testing.T) {
	// Point at a server that immediately closes to exhaust the retries.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	srv.Close()

	c := NewClient(srv.URL, Options{}, time.Second, testLogger())
	e := NewEngine(c, 1, testLogger())

	if err := e.Load(context.Background()); !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Load error = %v, want ErrLoadFailed", err)
	}
	if e.State() != StateFailed {
		t.Errorf("state = %v, want failed", e.State())
	}
	if e.LastError() == nil {
		t.Error("LastError = nil after failed load")
	}
}

func TestEngineConcurrentFirstRequests(t *testing.T) {
	srv := fakeEngine(t, []string{"ok"}, nil)
	defer srv.Close()

	c := NewClient(srv.URL, Options{}, 5*time.Second, testLogger())
	e := NewEngine(c, 2, testLogger())

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			errs <- e.Load(context.Background())
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent Load: %v", err)
		}
	}
	if e.State() != StateReady {
		t.Errorf("state = %v, want ready", e.State())
	}
}

func TestEngineStateReadableDuringLoad(t *testing.T) {
	// A dead backend keeps Load inside its retry loop; State must still
	// answer promptly and report the loading state while it does.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, Options{}, time.Second, testLogger())
	e := NewEngine(c, 3, testLogger())

	done := make(chan struct{})
	go func() {
		e.Load(context.Background())
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for e.State() != StateLoading {
		select {
		case <-deadline:
			t.Fatal("never observed loading state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	got := make(chan State, 1)
	go func() { got <- e.State() }()
	select {
	case s := <-got:
		if s != StateLoading && s != StateFailed {
			t.Errorf("state during load = %v", s)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("State blocked while a load was in progress")
	}

	<-done
	if e.State() != StateFailed {
		t.Errorf("state after exhausted retries = %v, want failed", e.State())
	}
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateUnloaded: "unloaded",
		StateLoading:  "loading",
		StateReady:    "ready",
		StateFailed:   "failed",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
