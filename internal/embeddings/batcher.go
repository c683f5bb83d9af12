package embeddings

import (
	"context"
	"fmt"
	"time"
)

// Batch defaults. The cooldown is a fixed courtesy delay between service
// calls, not an adaptive backoff.
const (
	DefaultBatchSize = 20
	DefaultCooldown  = 200 * time.Millisecond
)

// BatchProgressFunc is called after each group completes, with the 1-based
// group number and the total number of groups.
type BatchProgressFunc func(batch, totalBatches int)

// Batcher embeds large text sets through an Embedder in fixed-size groups,
// pausing between groups to stay under service rate limits.
type Batcher struct {
	embedder  Embedder
	batchSize int
	cooldown  time.Duration
	onBatch   BatchProgressFunc
}

// NewBatcher creates a Batcher. Non-positive batchSize or negative cooldown
// fall back to the defaults.
func NewBatcher(embedder Embedder, batchSize int, cooldown time.Duration) *Batcher {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if cooldown < 0 {
		cooldown = DefaultCooldown
	}
	return &Batcher{
		embedder:  embedder,
		batchSize: batchSize,
		cooldown:  cooldown,
	}
}

// SetProgressFunc sets the per-group progress callback.
func (b *Batcher) SetProgressFunc(fn BatchProgressFunc) {
	b.onBatch = fn
}

// Dimensions reports the vector width produced by the underlying embedder.
func (b *Batcher) Dimensions() int {
	return b.embedder.Dimensions()
}

// EmbedAll embeds texts in groups of batchSize, waiting the configured
// cooldown between groups (but not after the last). The result preserves
// input order and length. Any service failure aborts the whole operation;
// there is no partial-success accounting at this layer. An empty input
// returns nil without touching the service.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	totalBatches := (len(texts) + b.batchSize - 1) / b.batchSize
	all := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += b.batchSize {
		end := i + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		group := texts[i:end]
		batchNum := i/b.batchSize + 1

		vectors, err := b.embedder.Embed(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d/%d: %w", batchNum, totalBatches, err)
		}
		if len(vectors) != len(group) {
			return nil, fmt.Errorf("embed batch %d/%d: got %d vectors for %d texts", batchNum, totalBatches, len(vectors), len(group))
		}
		all = append(all, vectors...)

		if b.onBatch != nil {
			b.onBatch(batchNum, totalBatches)
		}

		if end < len(texts) && b.cooldown > 0 {
			if err := sleepCtx(ctx, b.cooldown); err != nil {
				return nil, err
			}
		}
	}

	return all, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
