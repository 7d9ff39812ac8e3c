package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"storenet/internal/codec"
	"storenet/internal/domain"
	"storenet/internal/repository"
)

// ============================================================================
// JSON Column Helpers
// ============================================================================

// marshalColumn encodes v for a JSON TEXT column
func marshalColumn(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalColumn decodes a nullable JSON column into target, leaving target
// untouched when the column is NULL or empty
func unmarshalColumn(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// ============================================================================
// Revision Row Scanner
// ============================================================================

// revisionRow holds all columns from a revision query for scanning
type revisionRow struct {
	ID           string
	Topology     string
	DocumentJSON sql.NullString
	FindingsJSON sql.NullString
	CreatedAt    time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match revisionColumns order exactly
func (r *revisionRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,
		&r.Topology,
		&r.DocumentJSON,
		&r.FindingsJSON,
		&r.CreatedAt,
	}
}

// toRevision converts the scanned row, decoding the document only when asked
func (r *revisionRow) toRevision(withDocument bool) (*repository.Revision, error) {
	rev := &repository.Revision{
		ID:        r.ID,
		Topology:  r.Topology,
		Findings:  []domain.Finding{},
		CreatedAt: r.CreatedAt,
	}

	if err := unmarshalColumn(r.FindingsJSON, &rev.Findings); err != nil {
		return nil, fmt.Errorf("unmarshal findings: %w", err)
	}

	if withDocument {
		rev.Document = &codec.Document{}
		if err := unmarshalColumn(r.DocumentJSON, rev.Document); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
	}

	return rev, nil
}

const revisionColumns = `id, topology, document, findings, created_at`
