// Package results keeps evaluation reports in a SQLite database so runs
// with different engines and settings can be compared later.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/goblin-king/pkg/eval"
)

var ErrNotFound = errors.New("report not found")

const schema = `CREATE TABLE IF NOT EXISTS eval_reports (
	id             TEXT PRIMARY KEY,
	eval_name      TEXT NOT NULL,
	engine         TEXT NOT NULL,
	model          TEXT NOT NULL,
	rule_injection TEXT NOT NULL,
	mean           REAL NOT NULL,
	items          INTEGER NOT NULL,
	created_at     INTEGER NOT NULL,
	body           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS eval_reports_name_created ON eval_reports (eval_name, created_at DESC);`

// Summary is one row of the report listing.
type Summary struct {
	ID            uuid.UUID `json:"id"`
	EvalName      string    `json:"eval_name"`
	Engine        string    `json:"engine"`
	Model         string    `json:"model"`
	RuleInjection string    `json:"rule_injection"`
	Mean          float64   `json:"mean"`
	Items         int       `json:"items"`
	CreatedAt     time.Time `json:"created_at"`
}

// SQLiteStore persists evaluation reports.
type SQLiteStore struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the results database at path.
func Open(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("results path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts a report. Saving the same report twice replaces it.
func (s *SQLiteStore) Save(ctx context.Context, r *eval.Report) error {
	if r == nil {
		return fmt.Errorf("report is required")
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("report id is required")
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT OR REPLACE INTO eval_reports
		   (id, eval_name, engine, model, rule_injection, mean, items, created_at, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(),
		r.EvalName,
		r.Settings.Engine,
		r.Settings.Model,
		r.Settings.RuleInjection,
		r.Mean,
		len(r.Scores),
		toMillis(r.CreatedAt),
		string(body),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Get loads a full report.
func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*eval.Report, error) {
	var body string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT body FROM eval_reports WHERE id = ?`, id.String()).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("query report: %w", err)
	}
	var r eval.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

// List returns report summaries, newest first. An empty evalName lists
// every evaluation; limit <= 0 means no limit.
func (s *SQLiteStore) List(ctx context.Context, evalName string, limit int) ([]Summary, error) {
	query := `SELECT id, eval_name, engine, model, rule_injection, mean, items, created_at FROM eval_reports`
	var args []any
	if evalName != "" {
		query += ` WHERE eval_name = ?`
		args = append(args, evalName)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum       Summary
			id        string
			createdAt int64
		)
		if err := rows.Scan(&id, &sum.EvalName, &sum.Engine, &sum.Model, &sum.RuleInjection, &sum.Mean, &sum.Items, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		sum.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse report id: %w", err)
		}
		sum.CreatedAt = fromMillis(createdAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}
