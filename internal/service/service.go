package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/crimson-sun/screener/internal/engine"
	"github.com/crimson-sun/screener/internal/model"
	"github.com/crimson-sun/screener/internal/validate"
)

// ErrAlreadyLoaded is returned by Load once a model context is in place.
var ErrAlreadyLoaded = errors.New("service: model already loaded")

// Loader produces the model context. It must either return a fully usable
// Engine or an error, never both.
type Loader func(ctx context.Context) (*engine.Engine, error)

// Health reports readiness for liveness and readiness probes.
type Health struct {
	Status         string `json:"status"`
	ModelLoaded    bool   `json:"model_loaded"`
	EncodersLoaded bool   `json:"encoders_loaded"`
}

// Service serves predictions over a model context that is loaded exactly
// once. Until Load succeeds, and after Close, every prediction fails with
// model.ErrUnavailable.
type Service struct {
	mu     sync.Mutex // serialises Load and Close
	engine atomic.Pointer[engine.Engine]
	closed bool

	// inflight is held for reading from the engine load in Evaluate until
	// Process returns. Close takes it for writing before releasing the
	// classifier.
	inflight sync.RWMutex
}

// New returns an unloaded Service.
func New() *Service {
	return &Service{}
}

// Load installs the model context produced by load. Loading is
// all-or-nothing: on any failure the service stays unservable.
func (s *Service) Load(ctx context.Context, load Loader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("service: closed")
	}
	if s.engine.Load() != nil {
		return ErrAlreadyLoaded
	}

	e, err := load(ctx)
	if err != nil {
		return fmt.Errorf("service: load: %w", err)
	}
	if e == nil {
		return fmt.Errorf("service: loader returned no engine")
	}
	if err := ctx.Err(); err != nil {
		e.Close()
		return fmt.Errorf("service: load: %w", err)
	}

	s.engine.Store(e)
	slog.Info("model loaded",
		"classifier", e.ClassifierName(),
		"encoder_fields", len(e.Encoders().Fields()))
	return nil
}

// Ready reports whether predictions can be served.
func (s *Service) Ready() bool {
	return s.engine.Load() != nil
}

// Health returns the current readiness. The model and encoders are loaded
// together, so both flags always agree.
func (s *Service) Health() Health {
	ready := s.Ready()
	h := Health{Status: "loading", ModelLoaded: ready, EncodersLoaded: ready}
	if ready {
		h.Status = "healthy"
	}
	return h
}

// ClassifierName identifies the loaded classifier backend, or "" before load.
func (s *Service) ClassifierName() string {
	if e := s.engine.Load(); e != nil {
		return e.ClassifierName()
	}
	return ""
}

// Evaluate validates sub and runs it through the model context, returning
// the feature vector alongside the verdict.
func (s *Service) Evaluate(ctx context.Context, sub model.Submission) (engine.Outcome, error) {
	s.inflight.RLock()
	defer s.inflight.RUnlock()

	e := s.engine.Load()
	if e == nil {
		return engine.Outcome{}, model.ErrUnavailable
	}
	if err := validate.Check(sub); err != nil {
		return engine.Outcome{}, err
	}
	return e.Process(ctx, sub)
}

// Predict returns the Verdict for sub.
func (s *Service) Predict(ctx context.Context, sub model.Submission) (model.Verdict, error) {
	out, err := s.Evaluate(ctx, sub)
	if err != nil {
		return model.Verdict{}, err
	}
	return out.Verdict, nil
}

// Close unloads the model context and releases the classifier. It waits
// for in-flight evaluations to finish; evaluations that start afterwards
// fail with model.ErrUnavailable.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.inflight.Lock()
	e := s.engine.Swap(nil)
	s.inflight.Unlock()
	if e == nil {
		return nil
	}
	return e.Close()
}
