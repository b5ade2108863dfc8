package classifier

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/crimson-sun/screener/internal/model"
)

// Classifier is a fitted binary classifier over a FeatureVector.
// Implementations are read-only after construction and safe for concurrent use.
type Classifier interface {
	// Predict returns the class label for fv.
	Predict(ctx context.Context, fv model.FeatureVector) (int, error)
	// PredictProba returns one probability per class, in class order.
	PredictProba(ctx context.Context, fv model.FeatureVector) ([]float64, error)
	// Name identifies the backend in logs.
	Name() string
	Close() error
}

// Config selects and locates a classifier backend.
type Config struct {
	Backend       string // "forest", "onnx" or "remote"
	ModelPath     string
	LibraryPath   string // onnxruntime shared library
	RemoteURL     string
	RemoteToken   string
	RemoteTimeout time.Duration
}

// Constructor builds a Classifier from its Config.
type Constructor func(cfg Config) (Classifier, error)

var registry = map[string]Constructor{}

// Register adds a backend constructor under the given name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the backend named by cfg.Backend.
func New(cfg Config) (Classifier, error) {
	ctor, ok := registry[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("classifier: unknown backend %q (have %v)", cfg.Backend, Backends())
	}
	return ctor(cfg)
}
