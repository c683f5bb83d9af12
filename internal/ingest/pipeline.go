// Package ingest orchestrates the knowledge-base write path: chunking,
// tagging, embedding, and versioned persistence.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/maribel-hq/maribel-kb/internal/chunker"
	"github.com/maribel-hq/maribel-kb/internal/embeddings"
	"github.com/maribel-hq/maribel-kb/internal/metadata"
	"github.com/maribel-hq/maribel-kb/internal/source"
	"github.com/maribel-hq/maribel-kb/internal/store"
)

// Pipeline turns raw documents into the active generation of searchable
// chunks, one document at a time.
type Pipeline struct {
	store      store.Store
	batcher    *embeddings.Batcher
	changedBy  string
	onProgress ProgressFunc
}

// NewPipeline creates a Pipeline. changedBy is the actor recorded in
// version-ledger entries.
func NewPipeline(s store.Store, batcher *embeddings.Batcher, changedBy string) *Pipeline {
	return &Pipeline{
		store:     s,
		batcher:   batcher,
		changedBy: changedBy,
	}
}

// SetProgressFunc sets the per-document progress callback used by Run.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// Run ingests each document in order. A failing document is recorded in the
// result and processing continues with the next one.
func (p *Pipeline) Run(ctx context.Context, docs []source.Document) *Result {
	result := &Result{}

	for i, doc := range docs {
		docResult := p.IngestDocument(ctx, doc)
		result.Documents = append(result.Documents, *docResult)
		result.TotalChunks += docResult.Written

		if p.onProgress != nil {
			p.onProgress(i+1, len(docs), doc.Key)
		}
	}

	return result
}

// IngestDocument replaces the document's active chunk generation.
//
// The previously active generation is retired first; if chunking then yields
// nothing, the document is deliberately left with no active content rather
// than restoring the old generation. A failure after deactivation leaves the
// document with zero active chunks; re-running ingestion repairs it.
func (p *Pipeline) IngestDocument(ctx context.Context, doc source.Document) *DocumentResult {
	result := &DocumentResult{Key: doc.Key}

	if err := p.store.DeactivateChunks(ctx, doc.Key); err != nil {
		result.Err = fmt.Errorf("deactivate previous generation: %w", err)
		return result
	}

	sections := chunker.Chunk(doc.Content, doc.Key)
	if len(sections) == 0 {
		return result
	}

	chunks := make([]store.Chunk, len(sections))
	texts := make([]string, len(sections))
	for i, sec := range sections {
		chunks[i] = store.Chunk{
			SourceDocument: doc.Key,
			Title:          sec.Title,
			Content:        sec.Content,
			Metadata:       metadata.Tag(sec.Content, sec.Title, doc.Key),
			IsActive:       true,
			Version:        1,
		}
		// The title is embedded with the body to bias retrieval toward
		// section intent.
		texts[i] = EmbedText(sec.Title, sec.Content)
	}

	vectors, err := p.batcher.EmbedAll(ctx, texts)
	if err != nil {
		result.Err = fmt.Errorf("embed %d chunks: %w", len(chunks), err)
		return result
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	inserted, err := p.store.InsertChunks(ctx, chunks)
	if err != nil {
		result.Err = fmt.Errorf("insert %d chunks: %w", len(chunks), err)
		return result
	}

	result.Written = len(inserted)
	entries := make([]store.LedgerEntry, len(inserted))
	for i, c := range inserted {
		result.Chunks = append(result.Chunks, ChunkSummary{
			ID:    c.ID,
			Title: c.Title,
			Words: len(strings.Fields(c.Content)),
		})
		entries[i] = store.LedgerEntry{
			ChunkID:    c.ID,
			Action:     store.ActionCreate,
			NewContent: c.Content,
			ChangedBy:  p.changedBy,
		}
	}

	// The chunks are already live; losing the audit record is not worth
	// failing the run over.
	if err := p.store.AppendLedger(ctx, entries); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not record versions: %v", err))
	}

	return result
}

// EmbedText builds the text submitted to the embedding service for a chunk.
// Re-embedding must build the identical text from persisted fields.
func EmbedText(title, content string) string {
	return title + "\n\n" + content
}
