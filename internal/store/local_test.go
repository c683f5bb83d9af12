package store

import (
	"context"
	"testing"
)

func openTestStore(t *testing.T) *Local {
	t.Helper()
	l, err := OpenLocalMemory()
	if err != nil {
		t.Fatalf("OpenLocalMemory: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func testChunk(source, title, content string, embedding []float32) Chunk {
	return Chunk{
		SourceDocument: source,
		Title:          title,
		Content:        content,
		Metadata:       map[string]string{"topic": "pricing"},
		Embedding:      embedding,
		IsActive:       true,
		Version:        1,
	}
}

func TestLocalInsertAndActiveChunks(t *testing.T) {
	l := openTestStore(t)
	ctx := context.Background()

	inserted, err := l.InsertChunks(ctx, []Chunk{
		testChunk("faq.md", "faq - Pricing", "Cost is $10.", []float32{1, 0}),
		testChunk("faq.md", "faq - Hours", "Open 9-5.", []float32{0, 1}),
	})
	if err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("inserted %d chunks", len(inserted))
	}
	if inserted[0].ID == 0 || inserted[1].ID == 0 {
		t.Errorf("ids not assigned: %d, %d", inserted[0].ID, inserted[1].ID)
	}
	if inserted[0].CreatedAt.IsZero() {
		t.Error("created_at not set")
	}

	active, err := l.ActiveChunks(ctx, nil)
	if err != nil {
		t.Fatalf("ActiveChunks: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d chunks", len(active))
	}
	if active[0].Title != "faq - Pricing" || active[0].Metadata["topic"] != "pricing" {
		t.Errorf("round-trip mismatch: %+v", active[0])
	}
	if len(active[0].Embedding) != 2 || active[0].Embedding[0] != 1 {
		t.Errorf("embedding round-trip mismatch: %v", active[0].Embedding)
	}
}

func TestLocalActiveChunksByID(t *testing.T) {
	l := openTestStore(t)
	ctx := context.Background()

	inserted, err := l.InsertChunks(ctx, []Chunk{
		testChunk("a.md", "a - One", "one", []float32{1, 0}),
		testChunk("a.md", "a - Two", "two", []float32{0, 1}),
	})
	if err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	got, err := l.ActiveChunks(ctx, []int64{inserted[1].ID})
	if err != nil {
		t.Fatalf("ActiveChunks: %v", err)
	}
	if len(got) != 1 || got[0].ID != inserted[1].ID {
		t.Fatalf("got %+v", got)
	}
}

func TestLocalDeactivateRetiresGeneration(t *testing.T) {
	l := openTestStore(t)
	ctx := context.Background()

	if _, err := l.InsertChunks(ctx, []Chunk{
		testChunk("faq.md", "faq - A", "first generation", []float32{1, 0}),
		testChunk("other.md", "other - B", "unrelated", []float32{0, 1}),
	}); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	if err := l.DeactivateChunks(ctx, "faq.md"); err != nil {
		t.Fatalf("DeactivateChunks: %v", err)
	}

	active, err := l.ActiveChunks(ctx, nil)
	if err != nil {
		t.Fatalf("ActiveChunks: %v", err)
	}
	if len(active) != 1 || active[0].SourceDocument != "other.md" {
		t.Fatalf("active after deactivation = %+v", active)
	}

	// The retired generation must also stop answering similarity queries.
	matches, err := l.MatchChunks(ctx, []float32{1, 0}, 0, 10)
	if err != nil {
		t.Fatalf("MatchChunks: %v", err)
	}
	for _, m := range matches {
		if m.SourceDocument == "faq.md" {
			t.Errorf("deactivated chunk still matched: %+v", m)
		}
	}
}

func TestLocalSingleActiveGenerationInvariant(t *testing.T) {
	l := openTestStore(t)
	ctx := context.Background()

	if _, err := l.InsertChunks(ctx, []Chunk{testChunk("x.md", "x - A", "gen one", []float32{1, 0})}); err != nil {
		t.Fatalf("insert gen 1: %v", err)
	}
	if err := l.DeactivateChunks(ctx, "x.md"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := l.InsertChunks(ctx, []Chunk{testChunk("x.md", "x - A", "gen two", []float32{1, 0})}); err != nil {
		t.Fatalf("insert gen 2: %v", err)
	}

	active, err := l.ActiveChunks(ctx, nil)
	if err != nil {
		t.Fatalf("ActiveChunks: %v", err)
	}
	if len(active) != 1 || active[0].Content != "gen two" {
		t.Fatalf("active generation = %+v", active)
	}
}

func TestLocalUpdateEmbedding(t *testing.T) {
	l := openTestStore(t)
	ctx := context.Background()

	inserted, err := l.InsertChunks(ctx, []Chunk{testChunk("a.md", "a - One", "content", []float32{1, 0})})
	if err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}
	id := inserted[0].ID

	if err := l.UpdateEmbedding(ctx, id, []float32{0, 1}); err != nil {
		t.Fatalf("UpdateEmbedding: %v", err)
	}

	active, err := l.ActiveChunks(ctx, []int64{id})
	if err != nil {
		t.Fatalf("ActiveChunks: %v", err)
	}
	if active[0].Embedding[0] != 0 || active[0].Embedding[1] != 1 {
		t.Errorf("embedding = %v, want [0 1]", active[0].Embedding)
	}
	if active[0].Content != "content" {
		t.Errorf("content changed: %q", active[0].Content)
	}

	// The index must answer with the new vector.
	matches, err := l.MatchChunks(ctx, []float32{0, 1}, 0.9, 1)
	if err != nil {
		t.Fatalf("MatchChunks: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != id {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestLocalUpdateEmbeddingUnknownChunk(t *testing.T) {
	l := openTestStore(t)

	if err := l.UpdateEmbedding(context.Background(), 999, []float32{1}); err == nil {
		t.Fatal("expected error for unknown chunk")
	}
}

func TestLocalLedgerAppendAndRead(t *testing.T) {
	l := openTestStore(t)
	ctx := context.Background()

	entries := []LedgerEntry{
		{ChunkID: 7, Action: ActionCreate, NewContent: "hello", ChangedBy: "maribel-kb"},
		{ChunkID: 7, Action: ActionReembed, NewContent: "hello", ChangedBy: "maribel-kb"},
		{ChunkID: 8, Action: ActionCreate, NewContent: "other", ChangedBy: "maribel-kb"},
	}
	if err := l.AppendLedger(ctx, entries); err != nil {
		t.Fatalf("AppendLedger: %v", err)
	}

	got, err := l.LedgerEntries(ctx, 7)
	if err != nil {
		t.Fatalf("LedgerEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Action != ActionReembed || got[1].Action != ActionCreate {
		t.Errorf("order = %s, %s", got[0].Action, got[1].Action)
	}
	if got[0].ChangedBy != "maribel-kb" {
		t.Errorf("changed_by = %q", got[0].ChangedBy)
	}
}

func TestLocalMatchThresholdAndLimit(t *testing.T) {
	l := openTestStore(t)
	ctx := context.Background()

	if _, err := l.InsertChunks(ctx, []Chunk{
		testChunk("a.md", "a - Near", "near", []float32{1, 0}),
		testChunk("a.md", "a - Far", "far", []float32{0, 1}),
	}); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	matches, err := l.MatchChunks(ctx, []float32{1, 0}, 0.9, 5)
	if err != nil {
		t.Fatalf("MatchChunks: %v", err)
	}
	if len(matches) != 1 || matches[0].Title != "a - Near" {
		t.Fatalf("matches = %+v", matches)
	}
	if matches[0].Similarity < 0.9 {
		t.Errorf("similarity = %f", matches[0].Similarity)
	}
}

func TestLocalMatchEmptyStore(t *testing.T) {
	l := openTestStore(t)

	matches, err := l.MatchChunks(context.Background(), []float32{1, 0}, 0, 5)
	if err != nil {
		t.Fatalf("MatchChunks: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %+v", matches)
	}
}
