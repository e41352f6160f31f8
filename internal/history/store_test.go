package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
)

func fixedClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	start := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	return []backend{
		{"memory", func(t *testing.T) Store {
			s := NewMemoryStore()
			s.clock = fixedClock(start)
			return s
		}},
		{"file", func(t *testing.T) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "history.json"))
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}
			s.clock = fixedClock(start)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			s.clock = fixedClock(start)
			return s
		}},
	}
}

func okEntry() Entry {
	return Entry{
		Input: features.RawInput{
			features.FieldFuel:      features.Text("Diesel"),
			features.FieldYear:      features.Number(2018),
			features.FieldOwnerText: features.Text("Second Owner"),
		},
		OwnerText: "Second Owner",
		Row:       &features.FeatureRow{Fuel: "Diesel", Year: 2018, Owner: 2},
		Outcome:   OutcomeOK,
		Price:     512000,
	}
}

func TestStoreRecordGet(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()

			rec, err := s.Record(ctx, okEntry())
			if err != nil {
				t.Fatalf("Record: %v", err)
			}
			if rec.ID == "" || rec.CreatedAt.IsZero() {
				t.Fatalf("expected stamped entry, got %+v", rec)
			}

			got, err := s.Get(ctx, rec.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Price != 512000 || got.Outcome != OutcomeOK || got.OwnerText != "Second Owner" {
				t.Fatalf("unexpected entry %+v", got)
			}
			if got.Row == nil || got.Row.Owner != 2 {
				t.Fatalf("expected row with owner 2, got %+v", got.Row)
			}
			if got.Input[features.FieldYear] != features.Number(2018) {
				t.Fatalf("expected year input preserved, got %v", got.Input[features.FieldYear])
			}
			if !got.CreatedAt.Equal(rec.CreatedAt) {
				t.Fatalf("created_at mismatch %v vs %v", got.CreatedAt, rec.CreatedAt)
			}

			if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()

			first, _ := s.Record(ctx, okEntry())
			second, _ := s.Record(ctx, Entry{Outcome: OutcomeInvalid, Missing: []string{"km_driven"}})
			third, _ := s.Record(ctx, Entry{Outcome: OutcomeFailed, Detail: "forest: boom"})

			all, err := s.List(ctx, 0)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 3 || all[0].ID != third.ID || all[1].ID != second.ID || all[2].ID != first.ID {
				t.Fatalf("unexpected order %+v", all)
			}
			if len(all[1].Missing) != 1 || all[1].Missing[0] != "km_driven" {
				t.Fatalf("expected missing km_driven, got %v", all[1].Missing)
			}
			if all[1].Row != nil {
				t.Fatalf("expected no row for invalid entry")
			}

			limited, err := s.List(ctx, 2)
			if err != nil {
				t.Fatalf("List limit: %v", err)
			}
			if len(limited) != 2 || limited[0].ID != third.ID {
				t.Fatalf("unexpected limited list %+v", limited)
			}
		})
	}
}

func TestFileStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	rec, err := s.Record(context.Background(), okEntry())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Price != rec.Price {
		t.Fatalf("expected price %v, got %v", rec.Price, got.Price)
	}
}

func TestLoadStateMissingFileReturnsEmpty(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "no-such-state.json"))
	if err != nil {
		t.Fatalf("LoadState missing file: %v", err)
	}
	if len(st.Entries) != 0 {
		t.Fatalf("expected empty entries, got %d", len(st.Entries))
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	rec, err := s.Record(context.Background(), okEntry())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(context.Background(), rec.ID); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}

func TestStampKeepsCallerID(t *testing.T) {
	e := Stamp(Entry{Outcome: OutcomeOK})
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and time, got %+v", e)
	}
	again := Stamp(e)
	if again.ID != e.ID || !again.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("restamp changed entry: %+v -> %+v", e, again)
	}
	rec, err := NewMemoryStore().Record(context.Background(), e)
	if err != nil || rec.ID != e.ID {
		t.Fatalf("store replaced id: %+v err=%v", rec, err)
	}
}
