package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crimson-sun/screener/internal/model"
)

func newSidecar(t *testing.T, handler http.HandlerFunc) *Remote {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	r, err := NewRemote(Config{RemoteURL: srv.URL, RemoteToken: "tok", RemoteTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRemotePredict(t *testing.T) {
	var got remoteRequest
	r := newSidecar(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", req.Header.Get("Authorization"))
		}
		json.NewDecoder(req.Body).Decode(&got)
		switch req.URL.Path {
		case "/predict":
			w.Write([]byte(`{"label":[1]}`))
		case "/predict_proba":
			w.Write([]byte(`{"probabilities":[[0.2,0.8]]}`))
		default:
			http.NotFound(w, req)
		}
	})

	fv := vector(9, 1)
	ctx := context.Background()
	label, err := r.Predict(ctx, fv)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if label != 1 {
		t.Errorf("label = %d, want 1", label)
	}
	if len(got.Columns) != model.NumFeatures || got.Columns[17] != "result" {
		t.Errorf("columns = %v", got.Columns)
	}
	if len(got.Features) != 1 || got.Features[0][model.ColResult] != 9 {
		t.Errorf("features = %v", got.Features)
	}

	proba, err := r.PredictProba(ctx, fv)
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	if len(proba) != 2 || proba[1] != 0.8 {
		t.Errorf("proba = %v", proba)
	}
}

func TestRemoteRejectsWrongRowCount(t *testing.T) {
	r := newSidecar(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"label":[0,1],"probabilities":[]}`))
	})
	ctx := context.Background()
	if _, err := r.Predict(ctx, vector(0, 0)); err == nil {
		t.Error("expected error for two labels")
	}
	if _, err := r.PredictProba(ctx, vector(0, 0)); err == nil {
		t.Error("expected error for zero rows")
	}
}

func TestRemoteServerError(t *testing.T) {
	r := newSidecar(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	})
	if _, err := r.Predict(context.Background(), vector(0, 0)); err == nil {
		t.Fatal("expected error on 500")
	}
}
