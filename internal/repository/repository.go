package repository

import (
	"context"
	"errors"
	"time"

	"storenet/internal/codec"
	"storenet/internal/domain"
)

// ErrNotFound is returned when a named topology or revision does not exist
var ErrNotFound = errors.New("not found")

// TopologySummary describes a saved topology without its document
type TopologySummary struct {
	Name      string    `json:"name"`
	Devices   int       `json:"devices"`
	Revisions int       `json:"revisions"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Revision is one saved state of a topology together with the findings the
// validator reported for it
type Revision struct {
	ID        string           `json:"id"`
	Topology  string           `json:"topology"`
	Document  *codec.Document  `json:"document,omitempty"`
	Findings  []domain.Finding `json:"findings"`
	CreatedAt time.Time        `json:"created_at"`
}

// Repository defines the interface for topology persistence
type Repository interface {
	// SaveTopology stores doc as the current state of doc.Name and appends a revision
	SaveTopology(ctx context.Context, doc *codec.Document, findings []domain.Finding) (*Revision, error)
	LoadTopology(ctx context.Context, name string) (*codec.Document, error)
	ListTopologies(ctx context.Context) ([]TopologySummary, error)
	DeleteTopology(ctx context.Context, name string) error

	// Revision history, newest first
	ListRevisions(ctx context.Context, name string, limit int) ([]Revision, error)
	GetRevision(ctx context.Context, id string) (*Revision, error)

	Close() error
}
