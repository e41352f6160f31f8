package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
)

// Remote calls a model server that accepts column-ordered rows.
type Remote struct {
	baseURL string
	http    *http.Client
}

func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type remoteRequest struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type remoteResponse struct {
	Predictions []float64 `json:"predictions"`
}

func (c *Remote) doJSON(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return blob, resp.StatusCode, fmt.Errorf("%s %s failed status=%d body=%s", method, path, resp.StatusCode, strings.TrimSpace(string(blob)))
	}
	return blob, resp.StatusCode, nil
}

func (c *Remote) Predict(ctx context.Context, row features.FeatureRow) (float64, error) {
	body, err := json.Marshal(remoteRequest{Columns: features.Columns(), Rows: [][]any{row.Values()}})
	if err != nil {
		return 0, &PredictionError{Backend: BackendRemote, Err: err}
	}
	out, status, err := c.doJSON(ctx, http.MethodPost, "/predict", body)
	if err != nil {
		return 0, &PredictionError{Backend: BackendRemote, Err: err, Transient: transientFailure(status, err)}
	}
	var resp remoteResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return 0, &PredictionError{Backend: BackendRemote, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Predictions) != 1 {
		return 0, &PredictionError{Backend: BackendRemote, Err: fmt.Errorf("expected 1 prediction, got %d", len(resp.Predictions))}
	}
	return resp.Predictions[0], nil
}

func transientFailure(status int, err error) bool {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return true
	case status >= 400:
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
