package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/maribel-hq/maribel-kb/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Semantically search the knowledge corpus",
	Long: `Embeds the given text and asks the datastore for the nearest active
chunks. A diagnostic probe for validating corpus quality; not part of
the write path.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 5, "maximum number of results")
	queryCmd.Flags().Float64("threshold", 0.3, "minimum similarity score")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	batcher := newBatcher(cfg)
	vectors, err := batcher.EmbedAll(ctx, []string{question})
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	matches, err := st.MatchChunks(ctx, vectors[0], threshold, limit)
	if err != nil {
		return fmt.Errorf("matching chunks: %w", err)
	}

	if len(matches) == 0 {
		fmt.Println("No matching chunks found.")
		return nil
	}

	if jsonOutput {
		return printMatchesJSON(matches)
	}

	fmt.Printf("Query: %q\n\nFound %d matching chunks:\n\n", question, len(matches))
	for _, m := range matches {
		fmt.Printf("--- [%.4f] %s ---\n", m.Similarity, m.Title)
		fmt.Printf("    Source: %s\n", m.SourceDocument)
		if len(m.Metadata) > 0 {
			fmt.Printf("    Metadata: %s\n", formatMetadata(m.Metadata))
		}
		fmt.Printf("    Content: %s\n", truncate(m.Content, 200))
		fmt.Println()
	}
	return nil
}

type matchJSON struct {
	Rank       int               `json:"rank"`
	Similarity float64           `json:"similarity"`
	Title      string            `json:"title"`
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Preview    string            `json:"preview"`
}

func printMatchesJSON(matches []store.Match) error {
	out := make([]matchJSON, len(matches))
	for i, m := range matches {
		out[i] = matchJSON{
			Rank:       i + 1,
			Similarity: m.Similarity,
			Title:      m.Title,
			Source:     m.SourceDocument,
			Metadata:   m.Metadata,
			Preview:    truncate(m.Content, 200),
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// formatMetadata renders tags in a stable key order.
func formatMetadata(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%s", k, meta[k])
	}
	return s
}
