package main

import (
	"context"
	"log/slog"

	"github.com/crimson-sun/screener/internal/config"
	"github.com/crimson-sun/screener/internal/engine"
	"github.com/crimson-sun/screener/internal/engine/classifier"
	"github.com/crimson-sun/screener/internal/service"
)

func classifierConfig(m config.ModelConfig) classifier.Config {
	return classifier.Config{
		Backend:       m.Classifier,
		ModelPath:     m.ModelPath,
		LibraryPath:   m.ORTLibrary,
		RemoteURL:     m.RemoteURL,
		RemoteToken:   m.RemoteToken,
		RemoteTimeout: m.RemoteTimeout,
	}
}

// loader opens the encoders and classifier described by m.
func loader(m config.ModelConfig) service.Loader {
	return func(context.Context) (*engine.Engine, error) {
		slog.Debug("loading model context",
			"classifier", m.Classifier,
			"model_path", m.ModelPath,
			"encoders_path", m.EncodersPath,
		)
		return engine.Open(m.EncodersPath, classifierConfig(m))
	}
}

// loadService returns a ready Service for one-shot commands.
func loadService(ctx context.Context, m config.ModelConfig) (*service.Service, error) {
	svc := service.New()
	if err := svc.Load(ctx, loader(m)); err != nil {
		return nil, err
	}
	return svc, nil
}
