package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maribel-hq/maribel-kb/internal/ingest"
	"github.com/maribel-hq/maribel-kb/internal/source"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest knowledge-base documents into the searchable corpus",
	Long: `Reads markdown documents from the knowledge directory, splits them into
titled chunks, tags and embeds each chunk, and writes a new active
generation per document. Previous generations are deactivated, never
deleted.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("file", "", "ingest only this document instead of the whole directory")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	singleFile, _ := cmd.Flags().GetString("file")

	var docs []source.Document
	if singleFile != "" {
		doc, err := source.Load(cfg.KnowledgeDir, singleFile)
		if err != nil {
			return err
		}
		docs = []source.Document{doc}
		fmt.Printf("Ingesting single document: %s\n\n", singleFile)
	} else {
		docs, err = source.List(cfg.KnowledgeDir, cfg.SkipFiles)
		if err != nil {
			return err
		}
		fmt.Printf("Found %d knowledge base documents to ingest.\n\n", len(docs))
	}

	pipeline, _, st, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	result := &ingest.Result{}
	for _, doc := range docs {
		fmt.Printf("--- Processing: %s ---\n", doc.Key)
		fmt.Printf("  Read %d characters\n", len(doc.Content))

		docResult := pipeline.IngestDocument(ctx, doc)
		result.Documents = append(result.Documents, *docResult)
		result.TotalChunks += docResult.Written

		for _, w := range docResult.Warnings {
			fmt.Fprintf(os.Stderr, "  Warning: %s\n", w)
		}

		switch {
		case docResult.Err != nil:
			fmt.Fprintf(os.Stderr, "  Error: %v\n", docResult.Err)
		case docResult.Written == 0:
			fmt.Println("  No chunks produced; document now has no active content.")
		default:
			fmt.Printf("  Wrote %d chunks:\n", docResult.Written)
			for _, c := range docResult.Chunks {
				fmt.Printf("    - %q (%d words)\n", c.Title, c.Words)
			}
		}
		fmt.Println()
	}

	fmt.Printf("=== Done! Ingested %d total chunks across %d documents. ===\n", result.TotalChunks, len(docs))

	if cfg.NotifyURL != "" && result.TotalChunks > 0 {
		notifyRefresh(ctx, cfg.NotifyURL, result)
	}

	if failed := result.Failed(); len(failed) > 0 {
		keys := make([]string, len(failed))
		for i, d := range failed {
			keys[i] = d.Key
		}
		return fmt.Errorf("%d of %d documents failed: %s", len(failed), len(docs), strings.Join(keys, ", "))
	}
	return nil
}

// notifyRefresh tells the agent runtime the corpus changed. Delivery failure
// is a warning; the chunks are already live.
func notifyRefresh(ctx context.Context, url string, result *ingest.Result) {
	var keys []string
	for _, d := range result.Documents {
		if d.Err == nil && d.Written > 0 {
			keys = append(keys, d.Key)
		}
	}

	notifier := ingest.NewNotifier(url)
	errCh := notifier.Notify(ctx, ingest.NotifyEvent{
		Event:     "knowledge_base_updated",
		Documents: keys,
		Chunks:    result.TotalChunks,
	})

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: agent refresh notification failed: %v\n", err)
		} else if verbose {
			fmt.Fprintln(os.Stderr, "Agent refresh notification delivered.")
		}
	case <-time.After(15 * time.Second):
		fmt.Fprintln(os.Stderr, "Warning: agent refresh notification still pending, not waiting.")
	}
}
