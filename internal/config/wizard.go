package config

import (
	"fmt"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path, and returns it. Credentials are not prompted for; they stay in the
// environment.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to maribel-kb! Let's configure the knowledge pipeline.")
	fmt.Println()

	cfg := DefaultConfig()

	dirPrompt := promptui.Prompt{
		Label:   "Knowledge base directory",
		Default: cfg.KnowledgeDir,
	}
	dir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("knowledge dir prompt: %w", err)
	}
	cfg.KnowledgeDir = dir

	driverPrompt := promptui.Select{
		Label: "Datastore driver",
		Items: []string{
			"supabase - production corpus (needs MARIBEL_SUPABASE_URL and MARIBEL_SUPABASE_SERVICE_KEY)",
			"local    - SQLite + vector index on disk, for development",
		},
	}
	driverIdx, _, err := driverPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("driver selection: %w", err)
	}
	drivers := []StoreDriver{DriverSupabase, DriverLocal}
	cfg.StoreDriver = drivers[driverIdx]

	if cfg.StoreDriver == DriverLocal {
		pathPrompt := promptui.Prompt{
			Label:   "Local store directory",
			Default: cfg.StorePath,
		}
		storePath, err := pathPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("store path prompt: %w", err)
		}
		cfg.StorePath = storePath
	}

	notifyPrompt := promptui.Prompt{
		Label:   "Agent refresh webhook URL (empty to disable)",
		Default: "",
	}
	notifyURL, err := notifyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("webhook prompt: %w", err)
	}
	cfg.NotifyURL = notifyURL

	if err := cfg.Save(path); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", path)
	fmt.Println("Set MARIBEL_OPENAI_API_KEY (and the Supabase variables, if applicable) before running `maribel-kb ingest`.")
	return cfg, nil
}
