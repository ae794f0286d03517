package arbor

import "runtime"

// Config holds the engine's tunable knobs. Zero values are replaced with
// the defaults from DefaultConfig.
type Config struct {
	// CacheBudgetBytes bounds the combined size of cached compilations.
	CacheBudgetBytes int64 `yaml:"cache_budget_bytes"`
	// ModelBudgetBytes bounds the combined size of cached semantic models.
	ModelBudgetBytes int64 `yaml:"model_budget_bytes"`
	// MaxArtifactBytes caps a single cached artifact. Larger artifacts are
	// built and returned but never cached.
	MaxArtifactBytes int64 `yaml:"max_artifact_bytes"`

	// Workers caps query concurrency. Zero means one worker per CPU.
	Workers int `yaml:"workers"`
	// PressureLoadFactor halves query concurrency when reached.
	PressureLoadFactor float64 `yaml:"pressure_load_factor"`
	// HighLoadFactor quarters query concurrency when reached.
	HighLoadFactor float64 `yaml:"high_load_factor"`

	// MinRelevance drops fuzzy matches scoring below it.
	MinRelevance float64 `yaml:"min_relevance"`
	// MaxResultsPerDoc caps search hits reported per document.
	MaxResultsPerDoc int `yaml:"max_results_per_doc"`

	// MetadataDB is the SQLite path of the external type index.
	// Empty means a session-local in-memory index.
	MetadataDB string `yaml:"metadata_db"`
	// ScriptsDir is where script queries are loaded from.
	ScriptsDir string `yaml:"scripts_dir"`
}

// DefaultConfig returns the configuration used when no options override it.
func DefaultConfig() Config {
	return Config{
		CacheBudgetBytes:   64 << 20,
		ModelBudgetBytes:   64 << 20,
		MaxArtifactBytes:   16 << 20,
		Workers:            runtime.NumCPU(),
		PressureLoadFactor: 0.7,
		HighLoadFactor:     0.9,
		MinRelevance:       0.2,
		MaxResultsPerDoc:   100,
		MetadataDB:         ":memory:",
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.CacheBudgetBytes <= 0 {
		c.CacheBudgetBytes = def.CacheBudgetBytes
	}
	if c.ModelBudgetBytes <= 0 {
		c.ModelBudgetBytes = def.ModelBudgetBytes
	}
	if c.MaxArtifactBytes <= 0 {
		c.MaxArtifactBytes = def.MaxArtifactBytes
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.PressureLoadFactor <= 0 {
		c.PressureLoadFactor = def.PressureLoadFactor
	}
	if c.HighLoadFactor <= 0 {
		c.HighLoadFactor = def.HighLoadFactor
	}
	if c.MinRelevance <= 0 {
		c.MinRelevance = def.MinRelevance
	}
	if c.MaxResultsPerDoc <= 0 {
		c.MaxResultsPerDoc = def.MaxResultsPerDoc
	}
	if c.MetadataDB == "" {
		c.MetadataDB = def.MetadataDB
	}
}
