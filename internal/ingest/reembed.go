package ingest

import (
	"context"
	"fmt"

	"github.com/maribel-hq/maribel-kb/internal/store"
)

// ReembedAll refreshes the embeddings of every active chunk in place.
// Content, title, metadata, version, and activation state are untouched;
// edits made since the original ingestion are picked up because the embed
// text is rebuilt from the persisted fields.
func (p *Pipeline) ReembedAll(ctx context.Context) (*ReembedResult, error) {
	return p.reembed(ctx, nil)
}

// ReembedChunks refreshes only the given chunks. Inactive or unknown ids are
// skipped silently; the datastore answers only for active chunks.
func (p *Pipeline) ReembedChunks(ctx context.Context, ids []int64) (*ReembedResult, error) {
	return p.reembed(ctx, ids)
}

func (p *Pipeline) reembed(ctx context.Context, ids []int64) (*ReembedResult, error) {
	chunks, err := p.store.ActiveChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch active chunks: %w", err)
	}

	result := &ReembedResult{Total: len(chunks)}
	if len(chunks) == 0 {
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = EmbedText(c.Title, c.Content)
	}

	vectors, err := p.batcher.EmbedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}

	// Unlike ingestion, this sweep is best effort: one chunk failing to
	// update must not strand the rest with stale embeddings.
	var entries []store.LedgerEntry
	for i, c := range chunks {
		if err := p.store.UpdateEmbedding(ctx, c.ID, vectors[i]); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("chunk %d (%s): %w", c.ID, c.Title, err))
			continue
		}
		result.Updated++
		entries = append(entries, store.LedgerEntry{
			ChunkID:    c.ID,
			Action:     store.ActionReembed,
			NewContent: c.Content,
			ChangedBy:  p.changedBy,
		})
	}

	if err := p.store.AppendLedger(ctx, entries); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not record versions: %v", err))
	}

	return result, nil
}
