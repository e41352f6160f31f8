package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
)

// SQLiteStore persists entries to a SQLite database. JSON-shaped columns
// (input, feature_row, missing) are stored as text.
type SQLiteStore struct {
	db    *sqlx.DB
	clock func() time.Time
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS predictions (
	id          TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	input       TEXT NOT NULL DEFAULT '{}',
	owner_text  TEXT NOT NULL DEFAULT '',
	feature_row TEXT,
	outcome     TEXT NOT NULL,
	price       REAL NOT NULL DEFAULT 0,
	missing     TEXT NOT NULL DEFAULT '[]',
	detail      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS predictions_created_at ON predictions (created_at);
`

// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type predictionRow struct {
	ID        string         `db:"id"`
	CreatedAt string         `db:"created_at"`
	Input     string         `db:"input"`
	OwnerText string         `db:"owner_text"`
	Row       sql.NullString `db:"feature_row"`
	Outcome   string         `db:"outcome"`
	Price     float64        `db:"price"`
	Missing   string         `db:"missing"`
	Detail    string         `db:"detail"`
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, clock: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Record(ctx context.Context, e Entry) (Entry, error) {
	e = stamp(e, s.clock)
	r, err := toRow(e)
	if err != nil {
		return Entry{}, err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO predictions (id, created_at, input, owner_text, feature_row, outcome, price, missing, detail)
		VALUES (:id, :created_at, :input, :owner_text, :feature_row, :outcome, :price, :missing, :detail)`, r)
	if err != nil {
		return Entry{}, fmt.Errorf("insert prediction: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Entry, error) {
	var r predictionRow
	err := s.db.GetContext(ctx, &r, `SELECT * FROM predictions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return fromRow(r)
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT * FROM predictions ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []predictionRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toRow(e Entry) (predictionRow, error) {
	input, err := json.Marshal(e.Input)
	if err != nil {
		return predictionRow{}, err
	}
	if e.Input == nil {
		input = []byte("{}")
	}
	missing, err := json.Marshal(e.Missing)
	if err != nil {
		return predictionRow{}, err
	}
	if e.Missing == nil {
		missing = []byte("[]")
	}
	r := predictionRow{
		ID:        e.ID,
		CreatedAt: e.CreatedAt.UTC().Format(timeLayout),
		Input:     string(input),
		OwnerText: e.OwnerText,
		Outcome:   string(e.Outcome),
		Price:     e.Price,
		Missing:   string(missing),
		Detail:    e.Detail,
	}
	if e.Row != nil {
		blob, err := json.Marshal(e.Row)
		if err != nil {
			return predictionRow{}, err
		}
		r.Row = sql.NullString{String: string(blob), Valid: true}
	}
	return r, nil
}

func fromRow(r predictionRow) (Entry, error) {
	e := Entry{
		ID:        r.ID,
		OwnerText: r.OwnerText,
		Outcome:   Outcome(r.Outcome),
		Price:     r.Price,
		Detail:    r.Detail,
	}
	var err error
	if e.CreatedAt, err = time.Parse(timeLayout, r.CreatedAt); err != nil {
		return Entry{}, fmt.Errorf("prediction %s created_at: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Input), &e.Input); err != nil {
		return Entry{}, fmt.Errorf("prediction %s input: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Missing), &e.Missing); err != nil {
		return Entry{}, fmt.Errorf("prediction %s missing: %w", r.ID, err)
	}
	if len(e.Missing) == 0 {
		e.Missing = nil
	}
	if r.Row.Valid && r.Row.String != "" {
		var row features.FeatureRow
		if err := json.Unmarshal([]byte(r.Row.String), &row); err != nil {
			return Entry{}, fmt.Errorf("prediction %s row: %w", r.ID, err)
		}
		e.Row = &row
	}
	return e, nil
}
