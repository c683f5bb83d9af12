// Package store persists knowledge chunks and their append-only version
// ledger, and answers nearest-neighbour queries over active chunks.
package store

import (
	"context"
	"time"
)

// Chunk is one persisted unit of knowledge-base content. For a given source
// document at most one generation of chunks is active at a time; superseded
// generations are deactivated, never deleted.
type Chunk struct {
	ID             int64
	SourceDocument string
	Title          string
	Content        string
	Metadata       map[string]string
	Embedding      []float32
	IsActive       bool
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LedgerAction classifies a version-ledger entry.
type LedgerAction string

const (
	ActionCreate  LedgerAction = "create"
	ActionUpdate  LedgerAction = "update"
	ActionDelete  LedgerAction = "delete"
	ActionReembed LedgerAction = "reembed"
)

// LedgerEntry is one append-only audit record of a chunk lifecycle event.
// Entries are never rewritten; ChunkID is a weak reference that may dangle if
// a chunk is hard-deleted by an administrative action outside this pipeline.
type LedgerEntry struct {
	ChunkID    int64
	Action     LedgerAction
	OldContent string
	NewContent string
	ChangedBy  string
	CreatedAt  time.Time
}

// Match is a nearest-neighbour result with its similarity score.
type Match struct {
	Chunk
	Similarity float64
}

// Store is the datastore boundary used by the ingestion and re-embedding
// pipelines and by the diagnostic query probe.
type Store interface {
	// DeactivateChunks marks every active chunk of sourceDocument inactive.
	// Rows are updated, never deleted.
	DeactivateChunks(ctx context.Context, sourceDocument string) error

	// InsertChunks bulk-inserts a new generation of chunks and returns the
	// stored rows with their generated identifiers.
	InsertChunks(ctx context.Context, chunks []Chunk) ([]Chunk, error)

	// ActiveChunks returns active chunks ordered by id. A nil or empty ids
	// slice selects all active chunks.
	ActiveChunks(ctx context.Context, ids []int64) ([]Chunk, error)

	// UpdateEmbedding replaces only the embedding of one chunk.
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error

	// AppendLedger appends version-ledger entries.
	AppendLedger(ctx context.Context, entries []LedgerEntry) error

	// LedgerEntries returns the ledger for one chunk, newest first.
	LedgerEntries(ctx context.Context, chunkID int64) ([]LedgerEntry, error)

	// MatchChunks returns up to limit active chunks whose similarity to the
	// given embedding is at least threshold, ranked by similarity.
	MatchChunks(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Match, error)

	Close() error
}
