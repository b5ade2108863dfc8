package screener

import (
	"context"
	"fmt"

	"github.com/crimson-sun/screener/internal/engine"
	"github.com/crimson-sun/screener/internal/engine/classifier"
	"github.com/crimson-sun/screener/internal/engine/encoder"
	"github.com/crimson-sun/screener/internal/model"
	"github.com/crimson-sun/screener/internal/questions"
	"github.com/crimson-sun/screener/internal/service"
)

// ErrUnavailable is returned by Screen after Close.
var ErrUnavailable = model.ErrUnavailable

// Classifier is a fitted binary classifier supplied by the caller.
// features follow FeatureColumns. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Predict(ctx context.Context, features []float64) (int, error)
	PredictProba(ctx context.Context, features []float64) ([]float64, error)
}

// Screener encodes submissions, runs the classifier and derives verdicts.
// Safe for concurrent use.
type Screener struct {
	svc *service.Service
}

// New loads the encoders and classifier. Loading is all-or-nothing.
func New(opts ...Option) (*Screener, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	resolvePaths(&o)

	svc := service.New()
	err := svc.Load(context.Background(), func(context.Context) (*engine.Engine, error) {
		if o.classifierImpl != nil {
			enc, err := encoder.Load(o.encodersPath)
			if err != nil {
				return nil, err
			}
			return engine.New(enc, external{o.classifierImpl}), nil
		}
		return engine.Open(o.encodersPath, classifier.Config{
			Backend:       o.backend,
			ModelPath:     o.modelPath,
			LibraryPath:   o.libraryPath,
			RemoteURL:     o.remoteURL,
			RemoteToken:   o.remoteToken,
			RemoteTimeout: o.remoteTimeout,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("screener: %w", err)
	}
	return &Screener{svc: svc}, nil
}

// Screen returns the verdict for one submission. Out-of-range answers or
// age fail with a validation error; a missing categorical value fails with
// an encoding error. Unknown categorical values are accepted and encoded
// with the fallback code.
func (s *Screener) Screen(ctx context.Context, sub Submission) (Verdict, error) {
	v, err := s.svc.Predict(ctx, toModel(sub))
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		Prediction:      v.Prediction,
		Probability:     v.Probability,
		RiskLevel:       string(v.RiskLevel),
		TotalScore:      v.TotalScore,
		Recommendations: v.Recommendations,
	}, nil
}

// Close releases the classifier. Subsequent Screen calls fail with
// ErrUnavailable.
func (s *Screener) Close() error {
	return s.svc.Close()
}

// Questions returns the AQ-10 questions in order.
func Questions() []Question {
	qs := questions.All()
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = Question{ID: q.ID, Text: q.Text}
	}
	return out
}

// FeatureColumns returns the column order of the features passed to a
// Classifier.
func FeatureColumns() []string {
	return append([]string(nil), model.Columns[:]...)
}

func toModel(s Submission) model.Submission {
	a := s.Answers
	return model.Submission{
		A1: a[0], A2: a[1], A3: a[2], A4: a[3], A5: a[4],
		A6: a[5], A7: a[6], A8: a[7], A9: a[8], A10: a[9],
		Age:           s.Age,
		Gender:        s.Gender,
		Ethnicity:     s.Ethnicity,
		Jaundice:      s.Jaundice,
		FamilyASD:     s.FamilyASD,
		Country:       s.Country,
		UsedAppBefore: s.UsedAppBefore,
		Relation:      s.Relation,
	}
}

// external adapts a caller-supplied Classifier to the engine.
type external struct {
	c Classifier
}

func (e external) Predict(ctx context.Context, fv model.FeatureVector) (int, error) {
	return e.c.Predict(ctx, fv[:])
}

func (e external) PredictProba(ctx context.Context, fv model.FeatureVector) ([]float64, error) {
	return e.c.PredictProba(ctx, fv[:])
}

func (external) Name() string { return "custom" }

func (external) Close() error { return nil }
