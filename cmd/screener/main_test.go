package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crimson-sun/screener/internal/audit"
	"github.com/crimson-sun/screener/internal/audit/async"
	"github.com/crimson-sun/screener/internal/audit/multi"
	"github.com/crimson-sun/screener/internal/config"
	"github.com/crimson-sun/screener/internal/model"
)

// submission returns a JSON body with the first n answers set to 1.
func submission(n int) string {
	m := map[string]any{
		"age": 30, "gender": "f", "ethnicity": "Asian", "jaundice": "no", "austim": "no",
		"contry_of_res": "India", "used_app_before": "no", "relation": "Self",
	}
	for i := 0; i < model.NumAnswers; i++ {
		v := 0
		if i < n {
			v = 1
		}
		m[model.AnswerField(i)] = v
	}
	data, _ := json.Marshal(m)
	return string(data)
}

// fixtureEnv points configuration at the checked-in forest fixtures.
func fixtureEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SCREENER_CONFIG", "SCREENER_AUDIT", "SCREENER_AUDIT_VERBOSITY", "SCREENER_CLASSIFIER"} {
		t.Setenv(k, "")
	}
	t.Setenv("SCREENER_ENCODERS_PATH", "../../testdata/encoders.yaml")
	t.Setenv("SCREENER_MODEL_PATH", "../../testdata/forest.json")
	t.Setenv("SCREENER_LOG_LEVEL", "error")
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestQuestionsCommand(t *testing.T) {
	fixtureEnv(t)
	out, _, err := execute(t, "", "questions")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 10 {
		t.Fatalf("got %d lines, want 10:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "A1: ") || !strings.HasPrefix(lines[9], "A10: ") {
		t.Errorf("unexpected ordering:\n%s", out)
	}
}

func TestPredictCommand(t *testing.T) {
	fixtureEnv(t)
	out, _, err := execute(t, submission(10), "predict")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	var v model.Verdict
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode verdict: %v\n%s", err, out)
	}
	if v.Prediction != 1 || v.RiskLevel != model.RiskHigh || v.TotalScore != 10 {
		t.Errorf("verdict = %+v", v)
	}
	if math.Abs(v.Probability-0.85) > 1e-9 {
		t.Errorf("probability = %v, want 0.85", v.Probability)
	}
}

func TestPredictCommandFromFile(t *testing.T) {
	fixtureEnv(t)
	path := filepath.Join(t.TempDir(), "sub.json")
	if err := os.WriteFile(path, []byte(submission(0)), 0o600); err != nil {
		t.Fatal(err)
	}
	out, _, err := execute(t, "", "predict", path)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !strings.Contains(out, `"risk_level": "Low"`) {
		t.Errorf("output = %s", out)
	}
}

func TestPredictCommandRejectsInvalid(t *testing.T) {
	fixtureEnv(t)
	_, _, err := execute(t, `{"age": 30}`, "predict")
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestBatchCommandToStdout(t *testing.T) {
	fixtureEnv(t)
	input := strings.Join([]string{submission(10), "not json", submission(0)}, "\n")
	out, errOut, err := execute(t, input, "batch", "--workers=1")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d records, want 2:\n%s", len(lines), out)
	}
	var rec audit.Record
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Source != "batch" || rec.Classifier != "forest" {
		t.Errorf("record = %+v", rec)
	}
	if !strings.Contains(errOut, "2 processed, 1 rejected") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestBatchThenAuditStore(t *testing.T) {
	fixtureEnv(t)
	db := filepath.Join(t.TempDir(), "screenings.db")
	t.Setenv("SCREENER_AUDIT", "sqlite")
	t.Setenv("SCREENER_AUDIT_SQLITE_PATH", db)

	input := strings.Join([]string{submission(10), submission(3)}, "\n")
	if _, _, err := execute(t, input, "batch", "--workers=1"); err != nil {
		t.Fatalf("batch: %v", err)
	}

	out, _, err := execute(t, "", "audit", "count")
	if err != nil {
		t.Fatalf("audit count: %v", err)
	}
	if strings.TrimSpace(out) != "2" {
		t.Errorf("count = %q, want 2", out)
	}

	out, _, err = execute(t, "", "audit", "recent", "--limit=1")
	if err != nil {
		t.Fatalf("audit recent: %v", err)
	}
	if n := strings.Count(strings.TrimSpace(out), "\n") + 1; n != 1 {
		t.Errorf("recent printed %d records, want 1:\n%s", n, out)
	}
}

func TestOpenAudit(t *testing.T) {
	ctx := context.Background()

	sink, err := openAudit(ctx, config.AuditConfig{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if sink != audit.Discard {
		t.Errorf("no sinks configured: got %T, want audit.Discard", sink)
	}

	dir := t.TempDir()
	a := config.AuditConfig{
		Sinks:      []string{"stdout", "file", "sqlite"},
		File:       filepath.Join(dir, "audit.jsonl"),
		SQLitePath: filepath.Join(dir, "audit.db"),
		Verbosity:  "minimal",
	}
	sink, err = openAudit(ctx, a, false)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := sink.(*multi.Sink)
	if !ok {
		t.Fatalf("got %T, want *multi.Sink", sink)
	}
	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	a.Sinks = []string{"file"}
	sink, err = openAudit(ctx, a, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sink.(*async.Sink); !ok {
		t.Errorf("background sink: got %T, want *async.Sink", sink)
	}
	sink.Close()
}

func TestOpenAuditErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		a    config.AuditConfig
	}{
		{"unknown sink", config.AuditConfig{Sinks: []string{"kafka"}}},
		{"bad verbosity", config.AuditConfig{Sinks: []string{"stdout"}, Verbosity: "loud"}},
		{"file in missing parent", config.AuditConfig{Sinks: []string{"file"}, File: "/proc/none/audit.jsonl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := openAudit(ctx, tt.a, false); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	if _, err := openStore(context.Background(), config.AuditConfig{}, "mysql"); err == nil {
		t.Error("expected error for unknown store")
	}
	if _, err := openStore(context.Background(), config.AuditConfig{}, "postgres"); err == nil {
		t.Error("expected error for postgres without DSN")
	}
}
