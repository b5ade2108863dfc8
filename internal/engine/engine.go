package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/crimson-sun/screener/internal/engine/classifier"
	"github.com/crimson-sun/screener/internal/engine/decision"
	"github.com/crimson-sun/screener/internal/engine/encoder"
	"github.com/crimson-sun/screener/internal/engine/features"
	"github.com/crimson-sun/screener/internal/model"
)

// Engine is the immutable model context: the fitted encoders and the
// classifier, loaded together once and shared read-only by every request.
type Engine struct {
	encoders   *encoder.Set
	classifier classifier.Classifier
}

// Outcome is the result of processing one Submission.
type Outcome struct {
	Features model.FeatureVector
	Verdict  model.Verdict
}

// New creates an Engine from already loaded components.
func New(enc *encoder.Set, cls classifier.Classifier) *Engine {
	return &Engine{encoders: enc, classifier: cls}
}

// Process runs encode → classify → decide for a validated Submission.
// It never returns a partially populated Outcome.
func (e *Engine) Process(ctx context.Context, sub model.Submission) (Outcome, error) {
	fv, err := features.Build(sub, e.encoders)
	if err != nil {
		return Outcome{}, err
	}

	label, err := e.classifier.Predict(ctx, fv)
	if err != nil {
		return Outcome{}, &model.InternalError{Op: "predict", Err: err}
	}
	if label != 0 && label != 1 {
		return Outcome{}, &model.InternalError{Op: "predict", Err: fmt.Errorf("label %d is not binary", label)}
	}

	proba, err := e.classifier.PredictProba(ctx, fv)
	if err != nil {
		return Outcome{}, &model.InternalError{Op: "predict_proba", Err: err}
	}
	p, err := PositiveProbability(proba)
	if err != nil {
		return Outcome{}, &model.InternalError{Op: "predict_proba", Err: err}
	}

	v := decision.Decide(label, p, sub.Answers())
	if v.TotalScore != fv.Result() {
		return Outcome{}, &model.InternalError{
			Op:  "score check",
			Err: fmt.Errorf("total score %d disagrees with encoded result %d", v.TotalScore, fv.Result()),
		}
	}

	return Outcome{Features: fv, Verdict: v}, nil
}

// PositiveProbability picks the class-1 probability from a classifier's
// probability row. A single-column row (degenerate binary model) is used
// as-is rather than indexed.
func PositiveProbability(proba []float64) (float64, error) {
	var p float64
	switch len(proba) {
	case 1:
		p = proba[0]
	case 2:
		p = proba[1]
	default:
		return 0, fmt.Errorf("expected 1 or 2 probability columns, got %d", len(proba))
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("probability %v out of [0,1]", p)
	}
	return p, nil
}

// Encoders returns the fitted encoder set.
func (e *Engine) Encoders() *encoder.Set { return e.encoders }

// ClassifierName identifies the classifier backend.
func (e *Engine) ClassifierName() string { return e.classifier.Name() }

// Close releases classifier resources.
func (e *Engine) Close() error {
	return e.classifier.Close()
}
