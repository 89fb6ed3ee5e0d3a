package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the CDE search tool.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider          string `yaml:"provider"`    // "voyage", "mock"
	Model             string `yaml:"model"`       // e.g., "voyage-large-2"
	APIKeyEnv         string `yaml:"api_key_env"` // Environment variable for API key
	BatchSize         int    `yaml:"batch_size"`  // Max texts per provider call
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Dimension         int    `yaml:"dimension"` // Used by the mock provider
}

// CorpusConfig holds corpus ingestion configuration.
type CorpusConfig struct {
	Includes   []string `yaml:"includes"`
	Excludes   []string `yaml:"excludes"`
	TextColumn string   `yaml:"text_column"`
	IDColumn   string   `yaml:"id_column"` // Optional; row number used when empty
}

// SearchConfig holds query-time configuration.
type SearchConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"` // Filter results below this score (0 = disabled)
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	AuthTokenEnv string `yaml:"auth_token_env"` // Bearer token env var ("" = auth disabled)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "voyage",
			Model:     "voyage-large-2",
			APIKeyEnv: "VOYAGE_API_KEY",
			BatchSize: 128,
			// The Voyage free tier allows 3 requests per minute.
			RequestsPerMinute: 3,
			Dimension:         1536,
		},
		Corpus: CorpusConfig{
			Includes:   []string{"**/*.csv"},
			Excludes:   []string{"**/.cdesearch/**"},
			TextColumn: "Question Texts",
		},
		Search: SearchConfig{
			TopK:     10,
			MinScore: 0,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for cdesearch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "cdesearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".cdesearch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StoreDBPath returns the path to the record/embedding database.
func StoreDBPath(dir string) string {
	return filepath.Join(dir, ".cdesearch", "store.db")
}

// IndexPath returns the path to the vector index file.
func IndexPath(dir string) string {
	return filepath.Join(dir, ".cdesearch", "cde.index")
}

// IDsPath returns the path to the ordered record-id file. The id file and
// the index file form one unit and must never be substituted individually.
func IDsPath(dir string) string {
	return filepath.Join(dir, ".cdesearch", "cde_ids.json")
}

// EnsureDataDir ensures the .cdesearch directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".cdesearch"), 0755)
}
