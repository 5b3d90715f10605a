package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nfsfurkandogan/biocadapp/internal/logging"
)

// State describes the engine lifecycle.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Load retry schedule.
const (
	defaultMaxRetries = 10
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffFactor     = 2.0
)

// Engine wraps a Client with an explicit lifecycle. The first request to a
// cold engine triggers a load; loadMu guarantees concurrent first requests
// perform exactly one, while the state fields sit behind their own
// short-held mutex so State stays responsive during the retry loop.
type Engine struct {
	client     *Client
	logger     *logging.Logger
	maxRetries int

	loadMu sync.Mutex // serializes Load; never held while answering State

	mu      sync.Mutex
	state   State
	lastErr error
}

// NewEngine creates an Engine in the Unloaded state. maxRetries <= 0 selects
// the default retry budget.
func NewEngine(client *Client, maxRetries int, logger *logging.Logger) *Engine {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Engine{
		client:     client,
		logger:     logger,
		maxRetries: maxRetries,
		state:      StateUnloaded,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError returns the error from the most recent failed load, if any.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) setState(s State, err error) {
	e.mu.Lock()
	e.state = s
	e.lastErr = err
	e.mu.Unlock()
}

// Load brings the engine to Ready by pinging its health endpoint with
// exponential backoff. Concurrent callers queue on loadMu and see the first
// load's result; state readers never wait on the retry loop.
func (e *Engine) Load(ctx context.Context) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if e.State() == StateReady {
		return nil
	}
	e.setState(StateLoading, nil)
	e.logger.Info("Loading inference engine")

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		e.logger.WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": e.maxRetries,
		}).Debug("Pinging inference engine")

		if e.client.Healthy(ctx) {
			e.setState(StateReady, nil)
			e.logger.Info("Inference engine ready")
			return nil
		}
		lastErr = fmt.Errorf("health check failed (attempt %d)", attempt)

		if attempt == e.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			e.setState(StateFailed, ctx.Err())
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * backoffFactor)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	err := fmt.Errorf("%w: %v", ErrLoadFailed, lastErr)
	e.setState(StateFailed, err)
	e.logger.WithField("error", err).Error("Failed to load inference engine")
	return err
}

// Unload returns the engine to Unloaded. The remote process keeps running;
// this only resets the lifecycle so the next request re-checks health.
func (e *Engine) Unload() {
	e.setState(StateUnloaded, nil)
	e.logger.Info("Inference engine unloaded")
}

// ensureReady loads the engine on first use.
func (e *Engine) ensureReady(ctx context.Context) error {
	if e.State() == StateReady {
		return nil
	}
	return e.Load(ctx)
}

// Generate implements Generator, loading the engine on first use.
func (e *Engine) Generate(ctx context.Context, prompt, imageB64 string) (string, error) {
	if err := e.ensureReady(ctx); err != nil {
		return "", err
	}
	return e.client.Generate(ctx, prompt, imageB64)
}

// GenerateStream implements Generator, loading the engine on first use.
func (e *Engine) GenerateStream(ctx context.Context, prompt, imageB64 string, fn func(token string) error) error {
	if err := e.ensureReady(ctx); err != nil {
		return err
	}
	return e.client.GenerateStream(ctx, prompt, imageB64, fn)
}

var _ Generator = (*Engine)(nil)
