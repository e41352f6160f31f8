package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemotePredict(t *testing.T) {
	var got remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			w.WriteHeader(404)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(400)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"predictions": []float64{612345.4}})
	}))
	defer srv.Close()

	price, err := NewRemote(srv.URL+"/").Predict(context.Background(), sampleRow())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if price != 612345.4 {
		t.Fatalf("expected 612345.4, got %v", price)
	}
	if len(got.Columns) != 11 || got.Columns[6] != "owner" {
		t.Fatalf("unexpected columns %v", got.Columns)
	}
	if len(got.Rows) != 1 || got.Rows[0][0] != "Diesel" || got.Rows[0][4] != 2018.0 {
		t.Fatalf("unexpected rows %v", got.Rows)
	}
}

func TestRemotePredictServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
		w.Write([]byte(`{"error":"loading"}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL).Predict(context.Background(), sampleRow())
	var pe *PredictionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PredictionError, got %v", err)
	}
	if !pe.Transient || pe.Kind() != BackendRemote {
		t.Fatalf("expected transient remote failure, got %+v", pe)
	}
}

func TestRemotePredictBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[]}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL).Predict(context.Background(), sampleRow())
	if err == nil {
		t.Fatal("expected error for empty predictions")
	}
}
