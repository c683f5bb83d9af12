package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/maribel-hq/maribel-kb/internal/store"
)

func activeFixture() []store.Chunk {
	return []store.Chunk{
		{ID: 1, SourceDocument: "faq.md", Title: "faq - Pricing", Content: "Pods cost $100.", IsActive: true, Version: 1},
		{ID: 2, SourceDocument: "faq.md", Title: "faq - Schedule", Content: "Mornings.", IsActive: true, Version: 1},
		{ID: 3, SourceDocument: "events.md", Title: "events - Open House", Content: "Saturday.", IsActive: true, Version: 1},
	}
}

func TestReembedAllUpdatesEveryActiveChunk(t *testing.T) {
	pipeline, st, emb := newTestPipeline()
	st.active = activeFixture()

	result, err := pipeline.ReembedAll(context.Background())
	if err != nil {
		t.Fatalf("ReembedAll: %v", err)
	}
	if result.Total != 3 || result.Updated != 3 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}

	// Embed text is rebuilt from persisted title and content.
	if emb.texts[0] != "faq - Pricing\n\nPods cost $100." {
		t.Errorf("embed text = %q", emb.texts[0])
	}

	if len(st.updated) != 3 {
		t.Fatalf("updated = %v", st.updated)
	}
	// Vector order follows chunk order.
	if st.updated[1][0] != 0 || st.updated[2][0] != 1 || st.updated[3][0] != 2 {
		t.Errorf("updated = %v", st.updated)
	}
	// Nothing but the embedding changes, so no inserts and no deactivations.
	if len(st.inserted) != 0 || len(st.deactivated) != 0 {
		t.Errorf("unexpected writes: inserted %v, deactivated %v", st.inserted, st.deactivated)
	}
}

func TestReembedRecordsLedger(t *testing.T) {
	pipeline, st, _ := newTestPipeline()
	st.active = activeFixture()

	if _, err := pipeline.ReembedAll(context.Background()); err != nil {
		t.Fatalf("ReembedAll: %v", err)
	}

	if len(st.ledger) != 3 {
		t.Fatalf("ledger = %+v", st.ledger)
	}
	for _, entry := range st.ledger {
		if entry.Action != store.ActionReembed {
			t.Errorf("action = %s", entry.Action)
		}
		if entry.ChangedBy != "tester" {
			t.Errorf("changed by = %s", entry.ChangedBy)
		}
	}
}

func TestReembedChunksSelectsByID(t *testing.T) {
	pipeline, st, _ := newTestPipeline()
	st.active = activeFixture()

	result, err := pipeline.ReembedChunks(context.Background(), []int64{2, 99})
	if err != nil {
		t.Fatalf("ReembedChunks: %v", err)
	}
	// Unknown ids are skipped silently.
	if result.Total != 1 || result.Updated != 1 {
		t.Fatalf("result = %+v", result)
	}
	if _, ok := st.updated[2]; !ok {
		t.Errorf("updated = %v", st.updated)
	}
}

func TestReembedContinuesPastFailingChunk(t *testing.T) {
	pipeline, st, _ := newTestPipeline()
	st.active = activeFixture()
	st.updateErrFor[2] = errors.New("row locked")

	result, err := pipeline.ReembedAll(context.Background())
	if err != nil {
		t.Fatalf("ReembedAll: %v", err)
	}
	if result.Updated != 2 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v", result.Errors)
	}
	// Chunks after the failing one still got fresh vectors.
	if _, ok := st.updated[3]; !ok {
		t.Errorf("updated = %v", st.updated)
	}
	// Only successful updates are recorded in the ledger.
	if len(st.ledger) != 2 {
		t.Errorf("ledger = %+v", st.ledger)
	}
}

func TestReembedEmbedFailureIsFatal(t *testing.T) {
	pipeline, st, emb := newTestPipeline()
	st.active = activeFixture()
	emb.err = errors.New("rate limited")

	if _, err := pipeline.ReembedAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(st.updated) != 0 {
		t.Errorf("updated = %v", st.updated)
	}
}

func TestReembedFetchFailure(t *testing.T) {
	pipeline, st, _ := newTestPipeline()
	st.activeErr = errors.New("unavailable")

	if _, err := pipeline.ReembedAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestReembedEmptyStore(t *testing.T) {
	pipeline, _, _ := newTestPipeline()

	result, err := pipeline.ReembedAll(context.Background())
	if err != nil {
		t.Fatalf("ReembedAll: %v", err)
	}
	if result.Total != 0 || result.Updated != 0 {
		t.Fatalf("result = %+v", result)
	}
}
