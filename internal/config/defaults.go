package config

// DefaultSkipFiles are knowledge-dir files that are not corpus content.
var DefaultSkipFiles = []string{
	"chunking-guide.md",
	"README.md",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		KnowledgeDir:        "knowledge-base",
		SkipFiles:           append([]string(nil), DefaultSkipFiles...),
		StoreDriver:         DriverSupabase,
		StorePath:           ".maribel-kb",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		BatchSize:           20,
		BatchCooldownMS:     200,
		ChangedBy:           "maribel-kb",
	}
}
