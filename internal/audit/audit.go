// Package audit records served verdicts to one or more sinks.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/screener/internal/model"
)

// Sink is a destination for audit records.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Verbosity controls how much of a record a sink keeps.
type Verbosity int

const (
	// Minimal drops the feature vector and recommendation text.
	Minimal Verbosity = iota
	// Standard keeps the whole record.
	Standard
)

func (v Verbosity) String() string {
	if v == Minimal {
		return "minimal"
	}
	return "standard"
}

// ParseVerbosity maps "minimal" and "standard" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "", "standard":
		return Standard, nil
	default:
		return Standard, fmt.Errorf("audit: unknown verbosity %q", s)
	}
}

// Record is one served screening. It carries the encoded feature vector,
// never the raw demographic strings.
type Record struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Source          string         `json:"source"`
	Classifier      string         `json:"classifier,omitempty"`
	Prediction      int            `json:"prediction"`
	Probability     float64        `json:"probability"`
	RiskLevel       model.RiskTier `json:"risk_level"`
	TotalScore      int            `json:"total_score"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Features        []float64      `json:"features,omitempty"`
}

// NewRecord builds a Record with a fresh ID and the current UTC time.
func NewRecord(source, classifier string, fv model.FeatureVector, v model.Verdict) Record {
	return Record{
		ID:              uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		Source:          source,
		Classifier:      classifier,
		Prediction:      v.Prediction,
		Probability:     v.Probability,
		RiskLevel:       v.RiskLevel,
		TotalScore:      v.TotalScore,
		Recommendations: append([]string(nil), v.Recommendations...),
		Features:        append([]float64(nil), fv[:]...),
	}
}

// Format returns a copy of rec trimmed to the given verbosity.
func Format(rec Record, v Verbosity) Record {
	if v == Minimal {
		rec.Recommendations = nil
		rec.Features = nil
	}
	return rec
}

// Discard is a Sink that drops every record.
var Discard Sink = discard{}

type discard struct{}

func (discard) Write(context.Context, Record) error { return nil }
func (discard) Close() error                        { return nil }
