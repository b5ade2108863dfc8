package screener

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

const (
	testEncodersPath = "../../testdata/encoders.yaml"
	testForestPath   = "../../testdata/forest.json"
)

func newFixture(t *testing.T, opts ...Option) *Screener {
	t.Helper()
	opts = append([]Option{WithEncodersPath(testEncodersPath), WithModelPath(testForestPath)}, opts...)
	s, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(yes int) Submission {
	sub := Submission{
		Age:           30,
		Gender:        "f",
		Ethnicity:     "Asian",
		Jaundice:      "no",
		FamilyASD:     "no",
		Country:       "India",
		UsedAppBefore: "no",
		Relation:      "Self",
	}
	for i := 0; i < yes; i++ {
		sub.Answers[i] = 1
	}
	return sub
}

// funcClassifier answers with a fixed probability row.
type funcClassifier struct {
	label int
	proba []float64
	seen  []float64
	mu    sync.Mutex
}

func (c *funcClassifier) Predict(_ context.Context, f []float64) (int, error) {
	c.mu.Lock()
	c.seen = append([]float64(nil), f...)
	c.mu.Unlock()
	return c.label, nil
}

func (c *funcClassifier) PredictProba(context.Context, []float64) ([]float64, error) {
	return c.proba, nil
}

func TestNewBadPathReturnsError(t *testing.T) {
	_, err := New(WithModelDir("/nonexistent/path"))
	if err == nil {
		t.Fatal("expected error for bad model path, got nil")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(WithEncodersPath(testEncodersPath), WithClassifier("svm"))
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestScreenHighRisk(t *testing.T) {
	s := newFixture(t)

	v, err := s.Screen(context.Background(), sample(10))
	if err != nil {
		t.Fatalf("Screen() error: %v", err)
	}
	if v.Prediction != 1 {
		t.Errorf("Prediction = %d, want 1", v.Prediction)
	}
	if math.Abs(v.Probability-0.85) > 1e-9 {
		t.Errorf("Probability = %v, want 0.85", v.Probability)
	}
	if v.RiskLevel != "High" {
		t.Errorf("RiskLevel = %q, want High", v.RiskLevel)
	}
	if v.TotalScore != 10 {
		t.Errorf("TotalScore = %d, want 10", v.TotalScore)
	}
	if len(v.Recommendations) != 7 {
		t.Errorf("got %d recommendations, want 7", len(v.Recommendations))
	}
}

func TestScreenLowRisk(t *testing.T) {
	s := newFixture(t)

	v, err := s.Screen(context.Background(), sample(0))
	if err != nil {
		t.Fatalf("Screen() error: %v", err)
	}
	if v.Prediction != 0 || v.RiskLevel != "Low" || v.TotalScore != 0 {
		t.Errorf("verdict = %+v", v)
	}
}

func TestScreenUnknownCountry(t *testing.T) {
	s := newFixture(t)

	sub := sample(0)
	sub.Country = "Atlantis"
	if _, err := s.Screen(context.Background(), sub); err != nil {
		t.Fatalf("unknown country should fall back, got error: %v", err)
	}
}

func TestScreenRejectsInvalid(t *testing.T) {
	s := newFixture(t)

	tests := []struct {
		name string
		mod  func(*Submission)
	}{
		{"answer out of range", func(s *Submission) { s.Answers[3] = 2 }},
		{"age zero", func(s *Submission) { s.Age = 0 }},
		{"age too high", func(s *Submission) { s.Age = 121 }},
		{"missing relation", func(s *Submission) { s.Relation = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := sample(5)
			tt.mod(&sub)
			if _, err := s.Screen(context.Background(), sub); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWithClassifierImpl(t *testing.T) {
	c := &funcClassifier{label: 0, proba: []float64{0.4, 0.6}}
	s := newFixture(t, WithClassifierImpl(c))

	v, err := s.Screen(context.Background(), sample(4))
	if err != nil {
		t.Fatalf("Screen() error: %v", err)
	}
	if v.RiskLevel != "Medium" || math.Abs(v.Probability-0.6) > 1e-9 {
		t.Errorf("verdict = %+v", v)
	}
	// label 0 with p > 0.5 still gets cautionary guidance.
	if v.Recommendations[0] != "Consider consulting with a qualified healthcare professional for a comprehensive evaluation" {
		t.Errorf("first recommendation = %q", v.Recommendations[0])
	}
	if len(c.seen) != len(FeatureColumns()) {
		t.Fatalf("classifier saw %d features, want %d", len(c.seen), len(FeatureColumns()))
	}
	if c.seen[10] != 30 {
		t.Errorf("age column = %v, want 30", c.seen[10])
	}
	if c.seen[17] != 4 {
		t.Errorf("result column = %v, want 4", c.seen[17])
	}
}

func TestScreenAfterClose(t *testing.T) {
	s, err := New(WithEncodersPath(testEncodersPath), WithModelPath(testForestPath))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Screen(context.Background(), sample(1)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestConcurrentScreen(t *testing.T) {
	s := newFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := s.Screen(context.Background(), sample(n%11)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Screen: %v", err)
	}
}

func TestQuestions(t *testing.T) {
	qs := Questions()
	if len(qs) != 10 {
		t.Fatalf("got %d questions, want 10", len(qs))
	}
	if qs[0].ID != "A1" || qs[9].ID != "A10" {
		t.Errorf("ids = %s..%s", qs[0].ID, qs[9].ID)
	}
	for _, q := range qs {
		if q.Text == "" {
			t.Errorf("%s has no text", q.ID)
		}
	}
}

func TestFeatureColumnsIsCopy(t *testing.T) {
	cols := FeatureColumns()
	cols[0] = "mutated"
	if FeatureColumns()[0] == "mutated" {
		t.Error("FeatureColumns exposes internal state")
	}
}
