// Package history records prediction requests and their outcomes.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
)

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeInvalid Outcome = "invalid"
	OutcomeFailed  Outcome = "failed"
)

var ErrNotFound = errors.New("prediction not found")

type Entry struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Input     features.RawInput    `json:"input"`
	OwnerText string               `json:"owner_text,omitempty"`
	Row       *features.FeatureRow `json:"row,omitempty"`
	Outcome   Outcome              `json:"outcome"`
	Price     float64              `json:"price,omitempty"`
	Missing   []string             `json:"missing,omitempty"`
	Detail    string               `json:"detail,omitempty"`
}

// Store is implemented by every backend. List returns newest first; a limit
// <= 0 returns everything.
type Store interface {
	Record(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
}

// stamp fills ID and CreatedAt when the caller left them empty.
// Stamp assigns an id and creation time to e where they are unset.
func Stamp(e Entry) Entry {
	return stamp(e, time.Now)
}

func stamp(e Entry, now func() time.Time) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now().UTC()
	}
	return e
}
