package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [chunk-id]",
	Short: "Show the version ledger for a chunk",
	Long: `Prints the append-only version ledger for one chunk, newest first:
creations, content updates, deletions, and re-embeddings, with the actor
that performed each.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	chunkID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chunk id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	entries, err := st.LedgerEntries(ctx, chunkID)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Printf("No ledger entries for chunk %d.\n", chunkID)
		return nil
	}

	fmt.Printf("Version ledger for chunk %d (%d entries):\n\n", chunkID, len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %-8s  by %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.ChangedBy)
		if e.OldContent != "" {
			fmt.Printf("      old: %s\n", truncate(e.OldContent, 120))
		}
		if e.NewContent != "" {
			fmt.Printf("      new: %s\n", truncate(e.NewContent, 120))
		}
	}
	return nil
}
