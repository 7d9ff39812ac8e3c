package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"storenet/internal/codec"
	"storenet/internal/domain"
	"storenet/internal/repository"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS topologies (
		name TEXT PRIMARY KEY,
		document JSON NOT NULL,
		devices INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS revisions (
		id TEXT PRIMARY KEY,
		topology TEXT NOT NULL,
		document JSON NOT NULL,
		findings JSON,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (topology) REFERENCES topologies(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_revisions_topology ON revisions(topology, created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveTopology upserts the named topology and records a revision in one
// transaction
func (r *Repository) SaveTopology(ctx context.Context, doc *codec.Document, findings []domain.Finding) (*repository.Revision, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, fmt.Errorf("topology name required")
	}
	if findings == nil {
		findings = []domain.Finding{}
	}

	docJSON, err := marshalColumn(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	findingsJSON, err := marshalColumn(findings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal findings: %w", err)
	}

	now := time.Now().UTC()
	rev := &repository.Revision{
		ID:        uuid.NewString(),
		Topology:  name,
		Document:  doc,
		Findings:  findings,
		CreatedAt: now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO topologies (name, document, devices, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			document = excluded.document,
			devices = excluded.devices,
			updated_at = excluded.updated_at
	`, name, docJSON, len(doc.Devices), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert topology: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions (`+revisionColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`, rev.ID, name, docJSON, findingsJSON, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return rev, nil
}

// LoadTopology returns the current document of the named topology
func (r *Repository) LoadTopology(ctx context.Context, name string) (*codec.Document, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT document FROM topologies WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topology %q: %w", name, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query topology: %w", err)
	}

	var doc codec.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topology %q: %w", name, err)
	}
	return &doc, nil
}

// ListTopologies returns all saved topologies ordered by name
func (r *Repository) ListTopologies(ctx context.Context) ([]repository.TopologySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.name, t.devices, t.updated_at,
			(SELECT COUNT(*) FROM revisions rv WHERE rv.topology = t.name)
		FROM topologies t
		ORDER BY t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query topologies: %w", err)
	}
	defer rows.Close()

	summaries := make([]repository.TopologySummary, 0)
	for rows.Next() {
		var s repository.TopologySummary
		if err := rows.Scan(&s.Name, &s.Devices, &s.UpdatedAt, &s.Revisions); err != nil {
			return nil, fmt.Errorf("failed to scan topology: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topologies: %w", err)
	}
	return summaries, nil
}

// DeleteTopology removes a topology and its revision history
func (r *Repository) DeleteTopology(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// explicit delete, :memory: databases run without foreign_keys
	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions WHERE topology = ?`, name); err != nil {
		return fmt.Errorf("failed to delete revisions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM topologies WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete topology: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("topology %q: %w", name, repository.ErrNotFound)
	}

	return tx.Commit()
}

// ListRevisions returns the newest revisions of a topology without their
// documents. A limit of zero or less returns all of them.
func (r *Repository) ListRevisions(ctx context.Context, name string, limit int) ([]repository.Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisions WHERE topology = ? ORDER BY created_at DESC, rowid DESC`
	args := []interface{}{name}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	revisions := make([]repository.Revision, 0)
	for rows.Next() {
		var row revisionRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		rev, err := row.toRevision(false)
		if err != nil {
			return nil, fmt.Errorf("revision %s: %w", row.ID, err)
		}
		revisions = append(revisions, *rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revisions: %w", err)
	}
	return revisions, nil
}

// GetRevision returns a single revision including its document
func (r *Repository) GetRevision(ctx context.Context, id string) (*repository.Revision, error) {
	var row revisionRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+revisionColumns+` FROM revisions WHERE id = ?`, id,
	).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %q: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query revision: %w", err)
	}

	return row.toRevision(true)
}
