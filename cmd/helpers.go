package cmd

import (
	"fmt"
	"time"

	"github.com/maribel-hq/maribel-kb/internal/config"
	"github.com/maribel-hq/maribel-kb/internal/embeddings"
	"github.com/maribel-hq/maribel-kb/internal/ingest"
	"github.com/maribel-hq/maribel-kb/internal/store"
)

// loadConfig loads and validates the config; validation failures list every
// missing item at once.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `maribel-kb init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore creates the datastore named by the config.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSupabase:
		return store.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey), nil
	case config.DriverLocal:
		return store.OpenLocal(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newBatcher wires the embedding stack from the config.
func newBatcher(cfg *config.Config) *embeddings.Batcher {
	embedder := embeddings.NewOpenAIEmbedder(
		cfg.OpenAIAPIKey,
		embeddings.OpenAIModel(cfg.EmbeddingModel),
		cfg.EmbeddingDimensions,
	)
	return embeddings.NewBatcher(embedder, cfg.BatchSize, time.Duration(cfg.BatchCooldownMS)*time.Millisecond)
}

// newPipeline builds the ingestion pipeline on a freshly opened store and
// returns the batcher for progress wiring. The caller owns closing the
// returned store.
func newPipeline(cfg *config.Config) (*ingest.Pipeline, *embeddings.Batcher, store.Store, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	batcher := newBatcher(cfg)
	return ingest.NewPipeline(st, batcher, cfg.ChangedBy), batcher, st, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
