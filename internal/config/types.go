package config

// StoreDriver identifies a datastore backend.
type StoreDriver string

const (
	// DriverSupabase talks to a Supabase project's PostgREST endpoint.
	DriverSupabase StoreDriver = "supabase"
	// DriverLocal keeps chunks in a local SQLite + vector index pair.
	DriverLocal StoreDriver = "local"
)

// Config is the top-level maribel-kb configuration, corresponding to
// .maribel-kb.yml. Credentials are normally supplied through MARIBEL_*
// environment variables rather than the file.
type Config struct {
	KnowledgeDir string   `yaml:"knowledge_dir" koanf:"knowledge_dir"`
	SkipFiles    []string `yaml:"skip_files" koanf:"skip_files"`

	StoreDriver        StoreDriver `yaml:"store_driver" koanf:"store_driver"`
	StorePath          string      `yaml:"store_path" koanf:"store_path"`
	SupabaseURL        string      `yaml:"supabase_url" koanf:"supabase_url"`
	SupabaseServiceKey string      `yaml:"supabase_service_key,omitempty" koanf:"supabase_service_key"`

	OpenAIAPIKey        string `yaml:"openai_api_key,omitempty" koanf:"openai_api_key"`
	EmbeddingModel      string `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	BatchSize           int    `yaml:"batch_size" koanf:"batch_size"`
	BatchCooldownMS     int    `yaml:"batch_cooldown_ms" koanf:"batch_cooldown_ms"`

	// NotifyURL, when set, receives a fire-and-forget POST after a
	// successful ingestion run so the agent runtime can refresh its view.
	NotifyURL string `yaml:"notify_url,omitempty" koanf:"notify_url"`

	// ChangedBy is the actor recorded in version-ledger entries.
	ChangedBy string `yaml:"changed_by" koanf:"changed_by"`
}
