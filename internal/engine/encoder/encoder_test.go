package encoder

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crimson-sun/screener/internal/model"
)

const fixturePath = "../../../testdata/encoders.yaml"

func testClasses() map[string][]string {
	return map[string][]string{
		model.FieldGender:        {"f", "m"},
		model.FieldEthnicity:     {"?", "Asian", "White-European"},
		model.FieldJaundice:      {"no", "yes"},
		model.FieldFamilyASD:     {"no", "yes"},
		model.FieldCountry:       {"India", "Côte d'Ivoire", "United States"},
		model.FieldUsedAppBefore: {"no", "yes"},
		model.FieldRelation:      {"?", "Parent", "Self"},
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestEncodeKnownValues(t *testing.T) {
	s, err := New(testClasses())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tests := []struct {
		field, raw string
		want       int
	}{
		{model.FieldGender, "f", 0},
		{model.FieldGender, "m", 1},
		{model.FieldEthnicity, "White-European", 2},
		{model.FieldCountry, "United States", 2},
		{model.FieldRelation, "Self", 2},
	}
	for _, tt := range tests {
		if got := s.Encode(tt.field, tt.raw); got != tt.want {
			t.Errorf("Encode(%q, %q) = %d, want %d", tt.field, tt.raw, got, tt.want)
		}
	}
}

func TestEncodeUnknownFallsBackAndWarns(t *testing.T) {
	logs := captureLogs(t)
	s, err := New(testClasses())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := s.Encode(model.FieldCountry, "Atlantis")
	if got != FallbackCode {
		t.Fatalf("Encode(unknown) = %d, want %d", got, FallbackCode)
	}
	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "field=contry_of_res") {
		t.Errorf("expected warning naming the field, got: %s", out)
	}
	if strings.Contains(out, "Atlantis") {
		t.Errorf("raw value must not be logged: %s", out)
	}
}

func TestEncodeIsCaseSensitive(t *testing.T) {
	captureLogs(t)
	s, _ := New(testClasses())
	if _, ok := s.Lookup(model.FieldGender, "M"); ok {
		t.Error("Lookup(M) should miss: fitted classes are exact strings")
	}
}

func TestLookupIsByteExact(t *testing.T) {
	s, _ := New(testClasses())
	if code, ok := s.Lookup(model.FieldCountry, "C\u00f4te d'Ivoire"); !ok || code != 1 {
		t.Errorf("Lookup(precomposed) = %d, %v; want 1, true", code, ok)
	}
	// "Côte" with a combining circumflex: canonically equivalent, but not
	// the string the encoder was fitted on.
	decomposed := "Co\u0302te d'Ivoire"
	if code, ok := s.Lookup(model.FieldCountry, decomposed); ok || code != FallbackCode {
		t.Errorf("Lookup(decomposed) = %d, %v; want %d, false", code, ok, FallbackCode)
	}
}

func TestLookupUnknownField(t *testing.T) {
	s, _ := New(testClasses())
	if code, ok := s.Lookup("age", "30"); ok || code != FallbackCode {
		t.Errorf("Lookup(age) = %d, %v", code, ok)
	}
}

func TestNewRejectsMissingField(t *testing.T) {
	c := testClasses()
	delete(c, model.FieldRelation)
	if _, err := New(c); err == nil || !strings.Contains(err.Error(), "relation") {
		t.Fatalf("expected missing-field error, got %v", err)
	}
}

func TestNewRejectsEmptyAndDuplicateClasses(t *testing.T) {
	c := testClasses()
	c[model.FieldGender] = nil
	if _, err := New(c); err == nil {
		t.Error("expected error for empty class list")
	}

	c = testClasses()
	c[model.FieldGender] = []string{"f", "m", "f"}
	if _, err := New(c); err == nil {
		t.Error("expected error for duplicate class")
	}
}

func TestNewIgnoresExtraFields(t *testing.T) {
	c := testClasses()
	c["age_desc"] = []string{"18 and more"}
	s, err := New(c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.Fields()) != len(model.CategoricalFields) {
		t.Errorf("Fields() = %v", s.Fields())
	}
}

func TestLoadYAMLFixture(t *testing.T) {
	s, err := Load(fixturePath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Size(model.FieldCountry) != 21 {
		t.Errorf("country classes = %d, want 21", s.Size(model.FieldCountry))
	}
	if code, ok := s.Lookup(model.FieldJaundice, "yes"); !ok || code != 1 {
		t.Errorf("jaundice yes = %d, %v", code, ok)
	}
	if code, ok := s.Lookup(model.FieldEthnicity, "?"); !ok || code != 0 {
		t.Errorf("ethnicity ? = %d, %v", code, ok)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoders.json")
	data := `{"gender":["f","m"],"ethnicity":["Asian"],"jaundice":["no","yes"],` +
		`"austim":["no","yes"],"contry_of_res":["India"],"used_app_before":["no","yes"],"relation":["Self"]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if code, ok := s.Lookup(model.FieldGender, "m"); !ok || code != 1 {
		t.Errorf("gender m = %d, %v", code, ok)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, nil, 0o644)
	corrupt := filepath.Join(dir, "corrupt.json")
	os.WriteFile(corrupt, []byte("{not json"), 0o644)

	for _, path := range []string{filepath.Join(dir, "missing.json"), empty, corrupt} {
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%s): expected error", filepath.Base(path))
		}
	}
}
