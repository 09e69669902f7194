package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: ollama
  max_tokens: 1024
  temperature: 0.2
  top_p: 0.9
  ollama:
    host: http://gpu-box:11434
    model: llama3.2
embedding:
  provider: ollama
  model: nomic-embed-text
store:
  backend: qdrant
  collection: orange-docs
  qdrant:
    host: qdrant.internal
    port: 6334
data:
  customers_csv: /srv/data/customers.csv
features:
  source_citations: true
  history_exchanges: 3
session:
  redis_addr: redis:6379
  ttl: 2h
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		KeyModelProvider, KeyModelMaxTokens, KeyModelTemperature, KeyModelTopP,
		"OLLAMA_HOST", "OLLAMA_MODEL",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		KeyVectorStore, KeyCollection, KeyQdrantHost, KeyQdrantPort,
		KeyCustomersCSV, KeySourceCitations, KeyHistoryExchanges,
		KeyRedisAddr, KeySessionTTL,
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		KeyModelProvider:     "ollama",
		KeyModelMaxTokens:    "1024",
		KeyModelTemperature:  "0.2",
		KeyModelTopP:         "0.9",
		"OLLAMA_HOST":        "http://gpu-box:11434",
		"OLLAMA_MODEL":       "llama3.2",
		"EMBEDDING_PROVIDER": "ollama",
		"EMBEDDING_MODEL":    "nomic-embed-text",
		KeyVectorStore:       "qdrant",
		KeyCollection:        "orange-docs",
		KeyQdrantHost:        "qdrant.internal",
		KeyQdrantPort:        "6334",
		KeyCustomersCSV:      "/srv/data/customers.csv",
		KeySourceCitations:   "true",
		KeyHistoryExchanges:  "3",
		KeyRedisAddr:         "redis:6379",
		KeySessionTTL:        "2h",
		"LOG_LEVEL":          "debug",
		"LOG_FORMAT":         "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading; it should NOT be overwritten.
	t.Setenv(KeyModelProvider, "openai")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv(KeyModelProvider); got != "openai" {
		t.Errorf("MODEL_PROVIDER: expected env override %q, got %q", "openai", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

// ---------------------------------------------------------------------------
// .env loading
// ---------------------------------------------------------------------------

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("CHROMA_DIR=/tmp/from-dotenv\nCATALOG_CSV=/tmp/catalog.csv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(KeyChromaDir, "")
	os.Unsetenv(KeyChromaDir)
	t.Setenv(KeyCatalogCSV, "/already/set.csv")

	if err := LoadDotEnv(slog.Default(), envPath); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(KeyChromaDir); got != "/tmp/from-dotenv" {
		t.Errorf("CHROMA_DIR = %q, want value from .env", got)
	}
	if got := os.Getenv(KeyCatalogCSV); got != "/already/set.csv" {
		t.Errorf("CATALOG_CSV = %q, existing env must win", got)
	}
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	t.Parallel()
	if err := LoadDotEnv(slog.Default(), filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file should be skipped, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func TestEnvHelpers(t *testing.T) {
	t.Setenv("ORANGEBOT_TEST_INT", "42")
	t.Setenv("ORANGEBOT_TEST_BAD_INT", "forty-two")
	t.Setenv("ORANGEBOT_TEST_BOOL", "true")
	t.Setenv("ORANGEBOT_TEST_FLOAT", "0.25")
	t.Setenv("ORANGEBOT_TEST_DUR", "90m")
	t.Setenv("ORANGEBOT_TEST_STR", "  padded  ")

	if got := Int("ORANGEBOT_TEST_INT", 1); got != 42 {
		t.Errorf("Int = %d, want 42", got)
	}
	if got := Int("ORANGEBOT_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("Int(bad) = %d, want fallback 7", got)
	}
	if got := Bool("ORANGEBOT_TEST_BOOL", false); !got {
		t.Error("Bool = false, want true")
	}
	if got := Float32("ORANGEBOT_TEST_FLOAT", 0); got != 0.25 {
		t.Errorf("Float32 = %v, want 0.25", got)
	}
	if got := Float64("ORANGEBOT_TEST_MISSING", 1.5); got != 1.5 {
		t.Errorf("Float64(missing) = %v, want fallback", got)
	}
	if got := Duration("ORANGEBOT_TEST_DUR", time.Hour); got != 90*time.Minute {
		t.Errorf("Duration = %v, want 90m", got)
	}
	if got := String("ORANGEBOT_TEST_STR", "x"); got != "padded" {
		t.Errorf("String = %q, want trimmed value", got)
	}
	if got := String("ORANGEBOT_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("String(missing) = %q, want fallback", got)
	}
}

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.3, "0.3"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
