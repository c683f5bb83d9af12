package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/maribel-hq/maribel-kb/internal/ingest"
)

var reembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Re-generate embeddings for active chunks in place",
	Long: `Fetches active chunks, re-generates their embeddings from the persisted
title and content, and updates the rows in place. Use after switching
embedding models or when embeddings seem degraded. Content, metadata,
and activation state are untouched.`,
	RunE: runReembed,
}

func init() {
	reembedCmd.Flags().String("chunks", "", "comma-separated chunk ids to re-embed (default: all active)")
	rootCmd.AddCommand(reembedCmd)
}

func runReembed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ids, err := parseChunkIDs(cmd)
	if err != nil {
		return err
	}

	pipeline, batcher, st, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("Re-embedding with %s (%d dimensions)...\n", cfg.EmbeddingModel, cfg.EmbeddingDimensions)

	var bar *progressbar.ProgressBar
	batcher.SetProgressFunc(func(batch, totalBatches int) {
		if bar == nil {
			bar = progressbar.NewOptions(totalBatches,
				progressbar.OptionSetDescription("Embedding batches"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(batch)
	})

	var result *ingest.ReembedResult
	if len(ids) > 0 {
		result, err = pipeline.ReembedChunks(ctx, ids)
	} else {
		result, err = pipeline.ReembedAll(ctx)
	}
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "Error: %v\n", e)
	}

	fmt.Printf("=== Done! Re-embedded %d/%d chunks. ===\n", result.Updated, result.Total)
	if result.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d chunks failed to update and keep their previous embeddings.\n", result.Failed)
	}
	return nil
}

func parseChunkIDs(cmd *cobra.Command) ([]int64, error) {
	raw, _ := cmd.Flags().GetString("chunks")
	if raw == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chunk id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
