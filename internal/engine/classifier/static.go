package classifier

import (
	"context"
	"sync/atomic"

	"github.com/crimson-sun/screener/internal/model"
)

// Static is a Classifier with a fixed output, for tests and dry runs.
// Calls counts Predict invocations.
type Static struct {
	Label int
	Proba []float64
	Err   error

	Calls  atomic.Int64
	closed atomic.Bool
}

// NewStatic returns a Static that always answers label with proba.
func NewStatic(label int, proba ...float64) *Static {
	return &Static{Label: label, Proba: proba}
}

func (s *Static) Predict(context.Context, model.FeatureVector) (int, error) {
	s.Calls.Add(1)
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Label, nil
}

func (s *Static) PredictProba(context.Context, model.FeatureVector) ([]float64, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]float64(nil), s.Proba...), nil
}

func (s *Static) Name() string { return "static" }

func (s *Static) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (s *Static) Closed() bool { return s.closed.Load() }
