// Package store persists records, entities, and total-check flags in
// SQLite or PostgreSQL behind a common interface.
package store

import (
	"context"

	"github.com/transparencydata/payments-cli/internal/check"
	"github.com/transparencydata/payments-cli/internal/model"
)

// RecordFilter specifies criteria for listing records.
type RecordFilter struct {
	Company string              `json:"company,omitempty"`
	Year    int                 `json:"year,omitempty"`
	Type    model.RecipientType `json:"type,omitempty"`
	Limit   int                 `json:"limit,omitempty"`
	Offset  int                 `json:"offset,omitempty"`
}

// EntityFilter specifies criteria for listing entities.
type EntityFilter struct {
	Type   model.RecipientType `json:"type,omitempty"`
	Search string              `json:"search,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the disclosure pipeline.
type Store interface {
	// Records
	ImportRecords(ctx context.Context, records []*model.Record) (int64, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error)
	UpdateRecords(ctx context.Context, records []*model.Record) error
	UpdateGroupIDs(ctx context.Context, groups map[int64]string) error

	// Entities
	ReplaceEntities(ctx context.Context, entities []*model.Entity) error
	ListEntities(ctx context.Context, filter EntityFilter) ([]*model.Entity, error)
	GetEntityBySlug(ctx context.Context, slug string) (*model.Entity, error)

	// Total-check flags
	ReplaceFlags(ctx context.Context, flags []check.Flag) error
	ListFlags(ctx context.Context) ([]check.Flag, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
