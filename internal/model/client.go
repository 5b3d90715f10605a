// Package model manages the external inference engine: a llama.cpp style
// HTTP server that accepts a prompt plus an optional base64 image and streams
// generated tokens back. The Engine type adds an explicit load/unload
// lifecycle on top of the raw client.
package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nfsfurkandogan/biocadapp/internal/logging"
	"github.com/nfsfurkandogan/biocadapp/internal/prompts"
)

var (
	// ErrNotReady indicates generation was requested before the engine
	// reached the Ready state.
	ErrNotReady = errors.New("inference engine is not ready")

	// ErrLoadFailed indicates the engine could not be reached within the
	// retry budget.
	ErrLoadFailed = errors.New("inference engine load failed")
)

// Generator produces text from a prompt and an optional base64-encoded image.
// The streaming variant invokes the callback once per token; returning an
// error from the callback aborts generation.
type Generator interface {
	Generate(ctx context.Context, prompt, imageB64 string) (string, error)
	GenerateStream(ctx context.Context, prompt, imageB64 string, fn func(token string) error) error
}

// Options configures the generation parameters sent with every request.
type Options struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Client talks to the engine's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	opts       Options
}

// NewClient creates a Client for the engine at baseURL.
func NewClient(baseURL string, opts Options, timeout time.Duration, logger *logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		opts:       opts,
	}
}

// Healthy reports whether the engine answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type completionRequest struct {
	Prompt      string       `json:"prompt"`
	NPredict    int          `json:"n_predict"`
	Temperature float64      `json:"temperature"`
	TopP        float64      `json:"top_p"`
	Stream      bool         `json:"stream"`
	CachePrompt bool         `json:"cache_prompt"`
	Stop        []string     `json:"stop"`
	ImageData   []imagePart  `json:"image_data,omitempty"`
}

type imagePart struct {
	Data string `json:"data"`
	ID   int    `json:"id"`
}

type completionChunk struct {
	Content string `json:"content"`
	Stop    bool   `json:"stop"`
}

// GenerateStream posts a streaming completion request and feeds tokens to fn
// as they arrive. Generation stops when the engine signals stop, the context
// is canceled, or fn returns an error.
func (c *Client) GenerateStream(ctx context.Context, prompt, imageB64 string, fn func(token string) error) error {
	body := completionRequest{
		Prompt:      prompts.SystemPreamble + "\n\n" + prompt,
		NPredict:    c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		TopP:        c.opts.TopP,
		Stream:      true,
		CachePrompt: true,
		Stop:        []string{"</s>", "User:"},
	}
	if imageB64 != "" {
		body.Prompt = prompts.SystemPreamble + "\n\n[img-10]" + prompt
		body.ImageData = []imagePart{{Data: imageB64, ID: 10}}
	}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&body); err != nil {
		return fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", buf)
	if err != nil {
		return fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("completion request: engine returned %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		line, found := strings.CutPrefix(line, "data: ")
		if !found {
			return fmt.Errorf("completion stream: missing data prefix in %q", line)
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return fmt.Errorf("completion stream: %w", err)
		}
		if chunk.Content != "" {
			if err := fn(chunk.Content); err != nil {
				return err
			}
		}
		if chunk.Stop {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("completion stream: %w", err)
	}
	return nil
}

// Generate collects a full streamed response into one string.
func (c *Client) Generate(ctx context.Context, prompt, imageB64 string) (string, error) {
	var sb strings.Builder
	err := c.GenerateStream(ctx, prompt, imageB64, func(token string) error {
		sb.WriteString(token)
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(sb.String(), " "), nil
}
