package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for chatpdf.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Extract   ExtractConfig   `yaml:"extract"`
	Storage   StorageConfig   `yaml:"storage"`
	Preload   PreloadConfig   `yaml:"preload"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	EnvFile   string          `yaml:"env_file"` // dotenv file read before resolving API keys
}

// LLMConfig holds chat completion configuration.
type LLMConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	DefaultModel string        `yaml:"default_model"`
	Models       []ModelConfig `yaml:"models"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"max_tokens"` // 0 = provider default
	TimeoutSecs  int           `yaml:"timeout_secs"`
}

// ModelConfig describes one selectable model. Zero chunk values fall back to
// the chunk section.
type ModelConfig struct {
	Name         string `yaml:"name"`
	ChunkSize    int    `yaml:"chunk_size,omitempty"`
	ChunkOverlap int    `yaml:"chunk_overlap,omitempty"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string `yaml:"provider"`    // "openai", "ollama", "hash"
	Model             string `yaml:"model"`       // e.g., "e5-mistral-7b-instruct"
	APIKeyEnv         string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL           string `yaml:"base_url"`    // empty = llm.base_url
	Dimension         int    `yaml:"dimension"`
	BatchSize         int    `yaml:"batch_size"`
	TimeoutSecs       int    `yaml:"timeout_secs"`
	Persist           bool   `yaml:"persist"`
	QueryCacheSize    int    `yaml:"query_cache_size"`
	QueryCacheTTLSecs int    `yaml:"query_cache_ttl_secs"`
}

// ChunkConfig holds the default chunking parameters in characters.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK             int `yaml:"top_k"`
	MinResponseChars int `yaml:"min_response_chars"` // chat answer length floor stated to the model
}

// ExtractConfig holds field extraction configuration.
type ExtractConfig struct {
	OutputDir   string `yaml:"output_dir"`
	Concurrency int    `yaml:"concurrency"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DataDir        string `yaml:"data_dir"`
	HistoryBackend string `yaml:"history_backend"` // "file", "bolt", "memory"
}

// PreloadConfig selects PDFs indexed by the preload command.
type PreloadConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// MetricsConfig holds the Prometheus endpoint address. Empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:      "https://chat-ai.academiccloud.de/v1",
			APIKeyEnv:    "CHATPDF_API_KEY",
			DefaultModel: "meta-llama-3-70b-instruct",
			Models: []ModelConfig{
				{Name: "mixtral-8x7b-instruct"},
				{Name: "meta-llama-3-70b-instruct"},
				{Name: "qwen1.5-72b-chat", ChunkSize: 1000, ChunkOverlap: 100},
			},
			Temperature: 0,
			TimeoutSecs: 120,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "e5-mistral-7b-instruct",
			APIKeyEnv:         "CHATPDF_API_KEY",
			Dimension:         4096,
			BatchSize:         32,
			TimeoutSecs:       60,
			Persist:           true,
			QueryCacheSize:    256,
			QueryCacheTTLSecs: 600,
		},
		Chunk: ChunkConfig{
			Size:    2000,
			Overlap: 200,
		},
		Retrieve: RetrieveConfig{
			TopK:             4,
			MinResponseChars: 100,
		},
		Extract: ExtractConfig{
			OutputDir:   "extract",
			Concurrency: 4,
		},
		Storage: StorageConfig{
			DataDir:        ".chatpdf",
			HistoryBackend: "file",
		},
		Preload: PreloadConfig{
			Includes: []string{"**/*.pdf", "**/*.PDF"},
			Excludes: []string{"**/.git/**", "**/.chatpdf/**"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		EnvFile: ".env",
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
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for chatpdf.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "chatpdf.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".chatpdf", "config.yaml")
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

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, %d), got %d", c.Chunk.Size, c.Chunk.Overlap)
	}
	for _, m := range c.LLM.Models {
		size, overlap := c.ChunkFor(m.Name)
		if overlap >= size {
			return fmt.Errorf("model %s: chunk overlap %d must be smaller than size %d", m.Name, overlap, size)
		}
	}
	if _, ok := c.Model(c.LLM.DefaultModel); !ok {
		return fmt.Errorf("llm.default_model %q is not listed in llm.models", c.LLM.DefaultModel)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	switch c.Embedding.Provider {
	case "openai", "ollama", "hash":
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	switch c.Storage.HistoryBackend {
	case "file", "bolt", "memory":
	default:
		return fmt.Errorf("unknown storage.history_backend %q", c.Storage.HistoryBackend)
	}
	return nil
}

// Model returns the catalogue entry for name.
func (c *Config) Model(name string) (ModelConfig, bool) {
	for _, m := range c.LLM.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// ModelNames returns the selectable models in configuration order.
func (c *Config) ModelNames() []string {
	names := make([]string, len(c.LLM.Models))
	for i, m := range c.LLM.Models {
		names[i] = m.Name
	}
	return names
}

// ChunkFor returns the chunk size and overlap used for documents indexed
// while model is selected. A model size without an overlap gets size/10.
func (c *Config) ChunkFor(model string) (size, overlap int) {
	size, overlap = c.Chunk.Size, c.Chunk.Overlap
	if m, ok := c.Model(model); ok && m.ChunkSize > 0 {
		size = m.ChunkSize
		overlap = m.ChunkOverlap
		if overlap <= 0 {
			overlap = size / 10
		}
	}
	return size, overlap
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}

func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSecs) * time.Second
}

func (c *Config) QueryCacheTTL() time.Duration {
	return time.Duration(c.Embedding.QueryCacheTTLSecs) * time.Second
}

// DataDir resolves storage.data_dir against dir unless it is absolute.
func (c *Config) DataDir(dir string) string {
	if filepath.IsAbs(c.Storage.DataDir) {
		return c.Storage.DataDir
	}
	return filepath.Join(dir, c.Storage.DataDir)
}

// DBPath returns the path to the bolt database.
func (c *Config) DBPath(dir string) string {
	return filepath.Join(c.DataDir(dir), "chatpdf.db")
}

// UploadDir returns where uploaded PDFs are stored.
func (c *Config) UploadDir(dir string) string {
	return filepath.Join(c.DataDir(dir), "uploads")
}

// OutputDir resolves extract.output_dir against dir unless it is absolute.
func (c *Config) OutputDir(dir string) string {
	if filepath.IsAbs(c.Extract.OutputDir) {
		return c.Extract.OutputDir
	}
	return filepath.Join(dir, c.Extract.OutputDir)
}

// EnsureDataDir ensures the data directory exists.
func (c *Config) EnsureDataDir(dir string) error {
	return os.MkdirAll(c.DataDir(dir), 0755)
}
