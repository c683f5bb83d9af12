// Package config loads, validates, and persists maribel-kb configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// envPrefix is stripped from environment overrides:
// MARIBEL_SUPABASE_URL -> supabase_url, MARIBEL_OPENAI_API_KEY ->
// openai_api_key, and so on.
const envPrefix = "MARIBEL_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MARIBEL_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path. Credentials
// loaded from the environment are omitted by their yaml tags.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validDrivers is the set of recognized store driver values.
var validDrivers = map[StoreDriver]bool{
	DriverSupabase: true,
	DriverLocal:    true,
}

// Validate checks the configuration and reports every problem at once, so an
// operator fixing a deployment sees the full list instead of one item per
// run.
func (c *Config) Validate() error {
	var missing []string

	if c.OpenAIAPIKey == "" {
		missing = append(missing, "openai_api_key (MARIBEL_OPENAI_API_KEY)")
	}

	if !validDrivers[c.StoreDriver] {
		return fmt.Errorf("invalid store_driver %q: must be one of supabase, local", c.StoreDriver)
	}

	switch c.StoreDriver {
	case DriverSupabase:
		if c.SupabaseURL == "" {
			missing = append(missing, "supabase_url (MARIBEL_SUPABASE_URL)")
		}
		if c.SupabaseServiceKey == "" {
			missing = append(missing, "supabase_service_key (MARIBEL_SUPABASE_SERVICE_KEY)")
		}
	case DriverLocal:
		if c.StorePath == "" {
			missing = append(missing, "store_path")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.EmbeddingDimensions < 1 {
		return fmt.Errorf("embedding_dimensions must be positive, got %d", c.EmbeddingDimensions)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.BatchCooldownMS < 0 {
		return fmt.Errorf("batch_cooldown_ms must not be negative, got %d", c.BatchCooldownMS)
	}
	return nil
}
