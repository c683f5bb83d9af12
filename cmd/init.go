package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maribel-hq/maribel-kb/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a maribel-kb configuration interactively",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(cfgFile); err == nil && !force {
		return fmt.Errorf("%s already exists; use --force to overwrite", cfgFile)
	}

	_, err := config.RunWizard(cfgFile)
	return err
}
