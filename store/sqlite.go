package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/termstructure"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists curve builds to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logger.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if !strings.HasPrefix(dbPath, ":memory:") && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; in-memory databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.GetLogger("store.sqlite")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Infow("sqlite archive opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS curve_builds (
			id              TEXT PRIMARY KEY,
			curve           TEXT NOT NULL,
			reference_date  TEXT NOT NULL,
			built_at        INTEGER NOT NULL,
			traits          TEXT,
			interpolation   TEXT,
			status          TEXT NOT NULL,
			error           TEXT,
			passes          INTEGER,
			evaluations     INTEGER,
			max_quote_error REAL,
			duration_ns     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_builds_curve ON curve_builds(curve, built_at)`,

		`CREATE TABLE IF NOT EXISTS curve_nodes (
			build_id   TEXT NOT NULL REFERENCES curve_builds(id) ON DELETE CASCADE,
			idx        INTEGER NOT NULL,
			node_date  TEXT NOT NULL,
			node_time  REAL NOT NULL,
			value      REAL NOT NULL,
			PRIMARY KEY (build_id, idx)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordBuild(ctx context.Context, b *Build) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.BuiltAt.IsZero() {
		b.BuiltAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO curve_builds
		(id, curve, reference_date, built_at, traits, interpolation, status, error,
		 passes, evaluations, max_quote_error, duration_ns)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.Curve, b.ReferenceDate.Format(dateLayout), b.BuiltAt.UnixNano(),
		b.Traits, b.Interpolation, b.Status, b.Error,
		b.Passes, b.Evaluations, b.MaxQuoteError, int64(b.Duration),
	); err != nil {
		return "", fmt.Errorf("insert build: %w", err)
	}

	for i, n := range b.Nodes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO curve_nodes
			(build_id, idx, node_date, node_time, value) VALUES (?,?,?,?,?)`,
			b.ID, i, n.Date.Format(dateLayout), n.Time, n.Value,
		); err != nil {
			return "", fmt.Errorf("insert node %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return b.ID, nil
}

const buildColumns = `id, curve, reference_date, built_at, traits, interpolation, status, error,
	passes, evaluations, max_quote_error, duration_ns`

func scanBuild(row interface{ Scan(...any) error }) (Build, error) {
	var (
		b        Build
		ref      string
		builtAt  int64
		duration int64
		errText  sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Curve, &ref, &builtAt, &b.Traits, &b.Interpolation, &b.Status, &errText,
		&b.Passes, &b.Evaluations, &b.MaxQuoteError, &duration); err != nil {
		return Build{}, err
	}
	d, err := time.Parse(dateLayout, ref)
	if err != nil {
		return Build{}, fmt.Errorf("reference date %q: %w", ref, err)
	}
	b.ReferenceDate = d
	b.BuiltAt = time.Unix(0, builtAt)
	b.Duration = time.Duration(duration)
	b.Error = errText.String
	return b, nil
}

func (r *SQLiteRecorder) Builds(ctx context.Context, curve string, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+buildColumns+` FROM curve_builds
		WHERE curve = ? ORDER BY built_at DESC LIMIT ?`, curve, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var out []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Build(ctx context.Context, id string) (*Build, error) {
	b, err := scanBuild(r.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM curve_builds WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store.Build: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store.Build: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT node_date, node_time, value FROM curve_nodes
		WHERE build_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			n    termstructure.Node
			date string
		)
		if err := rows.Scan(&date, &n.Time, &n.Value); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		if n.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("node date %q: %w", date, err)
		}
		b.Nodes = append(b.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite archive")
	return r.db.Close()
}
