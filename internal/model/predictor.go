// Package model holds the predictive-model collaborators. Each backend takes
// a validated features.FeatureRow and returns one price estimate.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
)

// Predictor is the one operation the UI layer needs from a model.
type Predictor interface {
	Predict(ctx context.Context, row features.FeatureRow) (float64, error)
}

// PredictionError wraps any failure raised while running inference.
type PredictionError struct {
	Backend   string
	Err       error
	Transient bool
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// Kind names the failure for display, e.g. "forest" or "remote".
func (e *PredictionError) Kind() string { return e.Backend }

var ErrInvalidRow = errors.New("feature row contains non-finite values")

// Guard wraps p so that a panicking model or a non-finite price surfaces as
// an ordinary error.
func Guard(p Predictor) Predictor {
	if g, ok := p.(guarded); ok {
		return g
	}
	return guarded{p}
}

type guarded struct{ p Predictor }

func (g guarded) Predict(ctx context.Context, row features.FeatureRow) (price float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			price, err = 0, fmt.Errorf("model panic: %v", r)
		}
	}()
	price, err = g.p.Predict(ctx, row)
	if err == nil && (math.IsNaN(price) || math.IsInf(price, 0)) {
		return 0, fmt.Errorf("model returned non-finite price %v", price)
	}
	return price, err
}

// Backend names accepted by Open.
const (
	BackendForest = "forest"
	BackendRemote = "remote"
	BackendLLM    = "llm"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string
	ForestPath string
	RemoteURL  string
}

// Open constructs the configured backend.
func Open(cfg Config) (Predictor, error) {
	switch strings.TrimSpace(cfg.Backend) {
	case "", BackendForest:
		if strings.TrimSpace(cfg.ForestPath) == "" {
			return nil, errors.New("forest backend requires a model path")
		}
		return LoadForest(cfg.ForestPath)
	case BackendRemote:
		if strings.TrimSpace(cfg.RemoteURL) == "" {
			return nil, errors.New("remote backend requires MODEL_URL")
		}
		return NewRemote(cfg.RemoteURL), nil
	case BackendLLM:
		caller, err := NewAnthropicCallerFromEnv()
		if err != nil {
			return nil, err
		}
		return NewLLMPredictor(caller), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}
