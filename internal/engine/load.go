package engine

import (
	"fmt"

	"github.com/crimson-sun/screener/internal/engine/classifier"
	"github.com/crimson-sun/screener/internal/engine/encoder"
)

// Open loads the encoder artifact and the classifier. Loading is
// all-or-nothing: if either fails, nothing is left open.
func Open(encodersPath string, cfg classifier.Config) (*Engine, error) {
	enc, err := encoder.Load(encodersPath)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	cls, err := classifier.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return New(enc, cls), nil
}
