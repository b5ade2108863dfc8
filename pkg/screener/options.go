package screener

import (
	"path/filepath"
	"time"
)

type options struct {
	modelDir       string
	backend        string
	modelPath      string
	encodersPath   string
	libraryPath    string
	remoteURL      string
	remoteToken    string
	remoteTimeout  time.Duration
	classifierImpl Classifier
}

// Option configures a Screener.
type Option func(*options)

// WithModelDir sets the directory containing model files.
// Expects: encoders.json and forest.json (or model.onnx for the onnx backend).
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithClassifier selects the backend: "forest" (default), "onnx" or "remote".
func WithClassifier(backend string) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithModelPath sets an explicit classifier artifact path.
func WithModelPath(path string) Option {
	return func(o *options) {
		o.modelPath = path
	}
}

// WithEncodersPath sets an explicit encoder artifact path (.json, .yaml or .yml).
func WithEncodersPath(path string) Option {
	return func(o *options) {
		o.encodersPath = path
	}
}

// WithLibraryPath sets the onnxruntime shared library for the onnx backend.
func WithLibraryPath(path string) Option {
	return func(o *options) {
		o.libraryPath = path
	}
}

// WithRemote points the remote backend at an inference endpoint.
func WithRemote(url, token string, timeout time.Duration) Option {
	return func(o *options) {
		o.backend = "remote"
		o.remoteURL = url
		o.remoteToken = token
		o.remoteTimeout = timeout
	}
}

// WithClassifierImpl supplies an in-process classifier, bypassing the
// backend selection. The caller keeps ownership; Close does not close it.
func WithClassifierImpl(c Classifier) Option {
	return func(o *options) {
		o.classifierImpl = c
	}
}

func defaultOptions() options {
	return options{
		modelDir: "models",
		backend:  "forest",
	}
}

// resolvePaths fills artifact paths from modelDir. Explicit paths take
// precedence.
func resolvePaths(o *options) {
	if o.encodersPath == "" {
		o.encodersPath = filepath.Join(o.modelDir, "encoders.json")
	}
	if o.modelPath == "" {
		switch o.backend {
		case "forest":
			o.modelPath = filepath.Join(o.modelDir, "forest.json")
		case "onnx":
			o.modelPath = filepath.Join(o.modelDir, "model.onnx")
		}
	}
}
