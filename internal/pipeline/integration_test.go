package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/audit/file"
	"github.com/crimson-sun/screener/internal/engine"
	"github.com/crimson-sun/screener/internal/engine/classifier"
	"github.com/crimson-sun/screener/internal/model"
	"github.com/crimson-sun/screener/internal/service"
)

// Fixture paths relative to internal/pipeline/.
const (
	integrationEncodersPath = "../../testdata/encoders.yaml"
	integrationForestPath   = "../../testdata/forest.json"
)

func newForestService(t *testing.T) *service.Service {
	t.Helper()
	svc := service.New()
	err := svc.Load(context.Background(), func(context.Context) (*engine.Engine, error) {
		return engine.Open(integrationEncodersPath, classifier.Config{Backend: "forest", ModelPath: integrationForestPath})
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestIntegrationForestToFile(t *testing.T) {
	svc := newForestService(t)
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := file.New(path, audit.Standard)
	if err != nil {
		t.Fatal(err)
	}

	// result 10 and jaundice "no" land at p1 = 0.85; result 0 at 0.15.
	jaundiced := strings.Replace(line(10, 30), `"jaundice":"no"`, `"jaundice":"yes"`, 1)
	input := strings.Join([]string{line(10, 30), line(0, 30), jaundiced}, "\n")

	sum, err := New(svc, sink).Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if sum.Processed != 3 {
		t.Fatalf("summary = %+v", sum)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d audit lines, want 3", len(lines))
	}

	want := []struct {
		p    float64
		risk model.RiskTier
	}{
		{0.85, model.RiskHigh},
		{0.15, model.RiskLow},
		{0.95, model.RiskHigh},
	}
	for i, l := range lines {
		var rec audit.Record
		if err := json.Unmarshal([]byte(l), &rec); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if diff := rec.Probability - want[i].p; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("line %d: probability = %v, want %v", i, rec.Probability, want[i].p)
		}
		if rec.RiskLevel != want[i].risk {
			t.Errorf("line %d: risk = %s, want %s", i, rec.RiskLevel, want[i].risk)
		}
		if rec.Classifier != "forest" {
			t.Errorf("line %d: classifier = %q", i, rec.Classifier)
		}
		if len(rec.Features) != model.NumFeatures {
			t.Errorf("line %d: %d features", i, len(rec.Features))
		}
	}
}

func TestIntegrationUnloadedServiceStopsRun(t *testing.T) {
	svc := service.New()
	_, err := New(svc, audit.Discard).Run(context.Background(), strings.NewReader(line(1, 30)))
	if err == nil {
		t.Fatal("expected error from unloaded service")
	}
}
