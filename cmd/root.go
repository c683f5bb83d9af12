package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "maribel-kb",
	Short: "Knowledge-base ingestion pipeline for the Maribel agent",
	Long: `maribel-kb maintains the knowledge corpus that grounds the Maribel
conversational agent. It splits markdown documents into titled chunks,
tags them with topical metadata, embeds them for semantic search, and
keeps the corpus versioned as documents are re-ingested over time.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".maribel-kb.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
