package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
)

// CategoryEncoding is the one-hot vocabulary of one categorical column.
type CategoryEncoding struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// TreeNode is one node of an exported regression tree. Left < 0 marks a leaf;
// otherwise x[Feature] <= Threshold goes left.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Forest is a regression forest exported as JSON from the training pipeline.
// Numeric columns come first in the encoded vector, then the one-hot blocks.
type Forest struct {
	Numeric         []string           `json:"numeric"`
	Categorical     []CategoryEncoding `json:"categorical"`
	TargetTransform string             `json:"target_transform"`
	Trees           []Tree             `json:"trees"`

	width int
}

func LoadForest(path string) (*Forest, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read forest: %w", err)
	}
	return ParseForest(blob)
}

func ParseForest(blob []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(blob, &f); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := f.init(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Forest) init() error {
	if len(f.Trees) == 0 {
		return errors.New("forest: no trees")
	}
	switch f.TargetTransform {
	case "", "log", "log1p":
	default:
		return fmt.Errorf("forest: unknown target_transform %q", f.TargetTransform)
	}
	for _, col := range f.Numeric {
		if !slices.Contains(features.NumericFields, col) {
			return fmt.Errorf("forest: unknown numeric column %q", col)
		}
	}
	for _, c := range f.Categorical {
		if !slices.Contains(features.CategoricalFields, c.Column) {
			return fmt.Errorf("forest: unknown categorical column %q", c.Column)
		}
	}
	f.width = len(f.Numeric)
	for _, c := range f.Categorical {
		f.width += len(c.Values)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("forest: tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Left < 0 {
				continue
			}
			if n.Feature < 0 || n.Feature >= f.width {
				return fmt.Errorf("forest: tree %d node %d feature %d out of range", ti, ni, n.Feature)
			}
			if n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				return fmt.Errorf("forest: tree %d node %d child out of range", ti, ni)
			}
			if n.Left <= ni || n.Right <= ni {
				return fmt.Errorf("forest: tree %d node %d children must follow their parent", ti, ni)
			}
		}
	}
	return nil
}

// Encode expands a row into the forest's input vector. Unknown categories
// encode as all zeros.
func (f *Forest) Encode(row features.FeatureRow) []float64 {
	x := make([]float64, 0, f.width)
	for _, col := range f.Numeric {
		x = append(x, row.Numeric(col))
	}
	for _, enc := range f.Categorical {
		v := row.Categorical(enc.Column)
		for _, cat := range enc.Values {
			if cat == v {
				x = append(x, 1)
			} else {
				x = append(x, 0)
			}
		}
	}
	return x
}

func (f *Forest) Predict(ctx context.Context, row features.FeatureRow) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &PredictionError{Backend: BackendForest, Err: err}
	}
	x := f.Encode(row)
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &PredictionError{Backend: BackendForest, Err: ErrInvalidRow}
		}
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.eval(x)
	}
	y := sum / float64(len(f.Trees))
	switch f.TargetTransform {
	case "log":
		y = math.Exp(y)
	case "log1p":
		y = math.Expm1(y)
	}
	return y, nil
}

func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
