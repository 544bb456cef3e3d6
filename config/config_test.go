package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunk.Size != 2000 {
		t.Errorf("expected Chunk.Size=2000, got %d", cfg.Chunk.Size)
	}
	if cfg.Chunk.Overlap != 200 {
		t.Errorf("expected Chunk.Overlap=200, got %d", cfg.Chunk.Overlap)
	}
	if cfg.Retrieve.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Retrieve.TopK)
	}
	if cfg.LLM.DefaultModel != "meta-llama-3-70b-instruct" {
		t.Errorf("unexpected default model %q", cfg.LLM.DefaultModel)
	}
	if cfg.LLM.Temperature != 0 {
		t.Errorf("expected temperature 0, got %f", cfg.LLM.Temperature)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestChunkFor(t *testing.T) {
	cfg := DefaultConfig()

	size, overlap := cfg.ChunkFor("qwen1.5-72b-chat")
	if size != 1000 || overlap != 100 {
		t.Errorf("qwen: expected 1000/100, got %d/%d", size, overlap)
	}

	size, overlap = cfg.ChunkFor("mixtral-8x7b-instruct")
	if size != 2000 || overlap != 200 {
		t.Errorf("mixtral: expected 2000/200, got %d/%d", size, overlap)
	}

	cfg.LLM.Models = append(cfg.LLM.Models, ModelConfig{Name: "small", ChunkSize: 500})
	size, overlap = cfg.ChunkFor("small")
	if size != 500 || overlap != 50 {
		t.Errorf("small: expected 500/50, got %d/%d", size, overlap)
	}

	size, _ = cfg.ChunkFor("unknown")
	if size != 2000 {
		t.Errorf("unknown model should use defaults, got %d", size)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"overlap >= size", func(c *Config) { c.Chunk.Overlap = c.Chunk.Size }},
		{"unknown default model", func(c *Config) { c.LLM.DefaultModel = "gpt-2" }},
		{"bad history backend", func(c *Config) { c.Storage.HistoryBackend = "redis" }},
		{"bad embedding provider", func(c *Config) { c.Embedding.Provider = "voyage" }},
		{"zero top_k", func(c *Config) { c.Retrieve.TopK = 0 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "chatpdf.yaml")

	content := `
chunk:
  size: 800
  overlap: 80
retrieve:
  top_k: 6
llm:
  default_model: mixtral-8x7b-instruct
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunk.Size != 800 {
		t.Errorf("expected Chunk.Size=800, got %d", cfg.Chunk.Size)
	}
	if cfg.Retrieve.TopK != 6 {
		t.Errorf("expected TopK=6, got %d", cfg.Retrieve.TopK)
	}
	if cfg.LLM.DefaultModel != "mixtral-8x7b-instruct" {
		t.Errorf("unexpected default model %q", cfg.LLM.DefaultModel)
	}
	// untouched sections keep their defaults
	if cfg.LLM.BaseURL != "https://chat-ai.academiccloud.de/v1" {
		t.Errorf("expected default base URL, got %q", cfg.LLM.BaseURL)
	}
	if len(cfg.LLM.Models) != 3 {
		t.Errorf("expected 3 default models, got %d", len(cfg.LLM.Models))
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatpdf.yaml")
	if err := os.WriteFile(path, []byte("chunk: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".chatpdf"), 0755); err != nil {
		t.Fatal(err)
	}
	content := `
extract:
  output_dir: out
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".chatpdf", "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Extract.OutputDir != "out" {
		t.Errorf("expected output dir 'out', got %q", cfg.Extract.OutputDir)
	}
	if got := cfg.OutputDir(tmpDir); got != filepath.Join(tmpDir, "out") {
		t.Errorf("unexpected resolved output dir %q", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatpdf.yaml")
	cfg := DefaultConfig()
	cfg.Retrieve.TopK = 9

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieve.TopK != 9 {
		t.Errorf("expected TopK=9, got %d", loaded.Retrieve.TopK)
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.DBPath("/work"); got != "/work/.chatpdf/chatpdf.db" {
		t.Errorf("unexpected db path %q", got)
	}
	cfg.Storage.DataDir = "/var/lib/chatpdf"
	if got := cfg.UploadDir("/work"); got != "/var/lib/chatpdf/uploads" {
		t.Errorf("unexpected upload dir %q", got)
	}
}
