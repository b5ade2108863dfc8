package classifier

import (
	"context"
	"fmt"

	"github.com/crimson-sun/screener/internal/httpclient"
	"github.com/crimson-sun/screener/internal/model"
)

func init() {
	Register("remote", func(cfg Config) (Classifier, error) {
		return NewRemote(cfg)
	})
}

// remoteRequest mirrors the batch call shape of the inference sidecar:
// one row per sample, columns in training order.
type remoteRequest struct {
	Columns  []string    `json:"columns"`
	Features [][]float64 `json:"features"`
}

type remoteResponse struct {
	Label         []int       `json:"label"`
	Probabilities [][]float64 `json:"probabilities"`
}

// Remote delegates inference to an HTTP model server exposing
// POST /predict and POST /predict_proba.
type Remote struct {
	client  *httpclient.Client
	columns []string
}

// NewRemote creates a Remote backend for cfg.RemoteURL.
func NewRemote(cfg Config) (*Remote, error) {
	if cfg.RemoteURL == "" {
		return nil, fmt.Errorf("remote: no URL configured")
	}
	var opts []httpclient.Option
	if cfg.RemoteTimeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.RemoteTimeout))
	}
	return &Remote{
		client:  httpclient.New(cfg.RemoteURL, cfg.RemoteToken, opts...),
		columns: model.Columns[:],
	}, nil
}

func (r *Remote) call(ctx context.Context, path string, fv model.FeatureVector) (remoteResponse, error) {
	req := remoteRequest{Columns: r.columns, Features: [][]float64{fv[:]}}
	var resp remoteResponse
	if err := r.client.PostJSON(ctx, path, req, &resp); err != nil {
		return remoteResponse{}, fmt.Errorf("remote: %s: %w", path, err)
	}
	return resp, nil
}

func (r *Remote) Predict(ctx context.Context, fv model.FeatureVector) (int, error) {
	resp, err := r.call(ctx, "/predict", fv)
	if err != nil {
		return 0, err
	}
	if len(resp.Label) != 1 {
		return 0, fmt.Errorf("remote: expected 1 label, got %d", len(resp.Label))
	}
	return resp.Label[0], nil
}

func (r *Remote) PredictProba(ctx context.Context, fv model.FeatureVector) ([]float64, error) {
	resp, err := r.call(ctx, "/predict_proba", fv)
	if err != nil {
		return nil, err
	}
	if len(resp.Probabilities) != 1 {
		return nil, fmt.Errorf("remote: expected 1 probability row, got %d", len(resp.Probabilities))
	}
	return resp.Probabilities[0], nil
}

func (r *Remote) Name() string { return "remote" }

func (r *Remote) Close() error { return nil }
