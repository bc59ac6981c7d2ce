// Package storage persists finished backtest results and keeps recently
// used ones in memory.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolio-backtest/internal/backtest"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("result not found")

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Store keeps one row per result: the headline numbers as columns for
// listing and the full result as JSON.
type Store struct {
	db  DB
	now func() time.Time
}

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS results(
		id TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		initial_value TEXT NOT NULL,
		final_value TEXT NOT NULL,
		total_return_pct REAL NOT NULL,
		annualized_return_pct REAL NOT NULL,
		created_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS results_created_at ON results(created_at)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db, now: time.Now} }

// Open opens the SQLite file at path, creates the schema and returns a Store.
func Open(path string) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema %s: %w", path, err)
	}
	return NewStore(db), nil
}

func (s *Store) Close() error { return s.db.Close() }

// ResultSummary is the listing form of a stored result.
type ResultSummary struct {
	ID                  string    `json:"id"`
	StrategyName        string    `json:"strategy_name"`
	StartDate           string    `json:"start_date"`
	EndDate             string    `json:"end_date"`
	InitialValue        string    `json:"initial_value"`
	FinalValue          string    `json:"final_value"`
	TotalReturnPct      float64   `json:"total_return_pct"`
	AnnualizedReturnPct float64   `json:"annualized_return_pct"`
	CreatedAt           time.Time `json:"created_at"`
}

// SaveResult inserts r, replacing any stored result with the same ID.
func (s *Store) SaveResult(r *backtest.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result %s: %w", r.ID, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO results(
		id,strategy,start_date,end_date,initial_value,final_value,total_return_pct,annualized_return_pct,created_at,payload
	) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.StrategyName, r.StartDate.Format(time.RFC3339), r.EndDate.Format(time.RFC3339),
		r.InitialValue.String(), r.FinalValue.String(), r.TotalReturnPct, r.AnnualizedReturnPct,
		s.now().UnixNano(), string(payload))
	return err
}

func (s *Store) GetResult(id string) (*backtest.Result, error) {
	rows, err := s.db.Query(`SELECT payload FROM results WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	var payload string
	if err := rows.Scan(&payload); err != nil {
		return nil, err
	}
	var r backtest.Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", id, err)
	}
	return &r, nil
}

// ListResults returns the newest results first; limit <= 0 returns all.
func (s *Store) ListResults(limit int) ([]ResultSummary, error) {
	q := `SELECT id,strategy,start_date,end_date,initial_value,final_value,total_return_pct,annualized_return_pct,created_at
		FROM results ORDER BY created_at DESC, id ASC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ResultSummary{}
	for rows.Next() {
		var r ResultSummary
		var created int64
		if err := rows.Scan(&r.ID, &r.StrategyName, &r.StartDate, &r.EndDate, &r.InitialValue, &r.FinalValue,
			&r.TotalReturnPct, &r.AnnualizedReturnPct, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteResult(id string) error {
	res, err := s.db.Exec(`DELETE FROM results WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}
