package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/tradeline/internal/model"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteBackend persists disputes and templates in a SQLite database.
// Timestamps are stored as RFC 3339 text in UTC.
type SQLiteBackend struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteBackend opens (or creates) the database at path and applies the schema
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &SQLiteBackend{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteBackend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS disputes (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		creditor_name TEXT NOT NULL DEFAULT '',
		dispute_reason TEXT NOT NULL,
		instructions TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_disputes_account ON disputes(account_id);

	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_templates_key ON templates(type, category);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateDispute stores a pending dispute. A dispute already stored for the
// same account is replaced in place: it keeps its id and creation time.
func (s *SQLiteBackend) CreateDispute(ctx context.Context, d model.NewDispute) (*model.Dispute, error) {
	if err := ValidateDispute(d); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	existing, err := scanDispute(tx.QueryRowContext(ctx, disputeSelect+` WHERE account_id = ? ORDER BY created_at, rowid LIMIT 1`, d.AccountID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		existing = nil
	case err != nil:
		return nil, err
	}

	stored := &model.Dispute{
		ID:            uuid.NewString(),
		AccountID:     d.AccountID,
		CreditorName:  d.CreditorName,
		DisputeReason: d.DisputeReason,
		Instructions:  d.Instructions,
		Status:        model.StatusPending,
		CreatedAt:     now,
	}
	if existing != nil {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		stored.UpdatedAt = now
		_, err = tx.ExecContext(ctx,
			`UPDATE disputes SET creditor_name = ?, dispute_reason = ?, instructions = ?, status = ?, updated_at = ?
			 WHERE id = ?`,
			stored.CreditorName, stored.DisputeReason, stored.Instructions, stored.Status,
			formatTime(stored.UpdatedAt), stored.ID)
		if err != nil {
			return nil, fmt.Errorf("update dispute: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO disputes (id, account_id, creditor_name, dispute_reason, instructions, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			stored.ID, stored.AccountID, stored.CreditorName, stored.DisputeReason, stored.Instructions,
			stored.Status, formatTime(stored.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("insert dispute: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return stored, nil
}

// UpdateStatus changes a dispute's status, returning ErrNotFound for unknown ids
func (s *SQLiteBackend) UpdateStatus(ctx context.Context, id, status string) (*model.Dispute, error) {
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE disputes SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(s.now().UTC()), id)
	if err != nil {
		return nil, fmt.Errorf("update dispute: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, disputeSelect+` WHERE id = ?`, id)
	d, err := scanDispute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

const disputeSelect = `SELECT id, account_id, creditor_name, dispute_reason, instructions, status, created_at, updated_at FROM disputes`

// ListDisputes returns all disputes, oldest first
func (s *SQLiteBackend) ListDisputes(ctx context.Context) ([]model.Dispute, error) {
	rows, err := s.db.QueryContext(ctx, disputeSelect+` ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query disputes: %w", err)
	}
	defer rows.Close()

	var out []model.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Templates returns the templates for a type and category in creation order
func (s *SQLiteBackend) Templates(ctx context.Context, typ, category string) ([]model.Template, error) {
	if err := ValidateTemplateKey(typ, category); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, category, title, content, created_at FROM templates
		 WHERE type = ? AND category = ? ORDER BY created_at, rowid`, typ, category)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var t model.Template
		var created string
		if err := rows.Scan(&t.ID, &t.Type, &t.Category, &t.Title, &t.Content, &created); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTemplate validates and inserts a template
func (s *SQLiteBackend) CreateTemplate(ctx context.Context, t model.Template) (*model.Template, error) {
	if err := ValidateTemplate(t); err != nil {
		return nil, err
	}

	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO templates (id, type, category, title, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Type, t.Category, t.Title, t.Content, formatTime(t.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return &t, nil
}

// Close closes the database
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispute(row rowScanner) (*model.Dispute, error) {
	var d model.Dispute
	var created, updated string
	if err := row.Scan(&d.ID, &d.AccountID, &d.CreditorName, &d.DisputeReason, &d.Instructions, &d.Status, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan dispute: %w", err)
	}
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

// timeLayout has fixed-width fractions so text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
