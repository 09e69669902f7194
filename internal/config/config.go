// Package config provides layered configuration for orangebot.
// Precedence: defaults → YAML file → .env file → process environment.
// The process environment always wins, so deployments can override any value
// without touching files.
//
// YAML file search order:
//  1. --config CLI flag (explicit path)
//  2. ORANGEBOT_CONFIG environment variable
//  3. ~/.orangebot/config.yaml
//  4. ./orangebot.yaml
//
// If no file is found the process runs entirely from env vars.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Model configures the chat and classifier model provider.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding provider used for retrieval.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Store configures the document vector store.
	Store StoreConfig `yaml:"store"`

	// Data points at the flat files and prompt assets.
	Data DataConfig `yaml:"data"`

	// Features toggles optional assistant behaviour.
	Features FeaturesConfig `yaml:"features"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Session configures login session storage.
	Session SessionConfig `yaml:"session"`

	// History configures conversation history storage.
	History HistoryConfig `yaml:"history"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig holds chat model settings.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, ark, gemini.
	Provider string `yaml:"provider"`
	// MaxTokens caps the generated response length.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature is used for answer generation.
	Temperature float32 `yaml:"temperature"`
	// TopP is the nucleus sampling cut-off for answer generation.
	TopP float32 `yaml:"top_p"`
	// ClassifierModel overrides the model name used for intent classification.
	ClassifierModel string `yaml:"classifier_model"`
	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama"`
	// OpenAI holds OpenAI-specific settings.
	OpenAI OpenAIConfig `yaml:"openai"`
	// Azure holds Azure OpenAI-specific settings.
	Azure AzureConfig `yaml:"azure"`
	// Ark holds Volcengine Ark-specific settings.
	Ark ArkConfig `yaml:"ark"`
	// Gemini holds Google Gemini-specific settings.
	Gemini GeminiConfig `yaml:"gemini"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// ArkConfig holds Volcengine Ark provider settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	// Backend is chromem (embedded, default) or qdrant.
	Backend string `yaml:"backend"`
	// ChromaDir is the directory of the persistent chromem database.
	ChromaDir string `yaml:"chroma_dir"`
	// Collection is the collection name shared by both backends.
	Collection string `yaml:"collection"`
	// Qdrant holds the Qdrant connection settings.
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	TLS    bool   `yaml:"tls"`
}

// DataConfig locates the flat files the assistant reads at startup.
type DataConfig struct {
	// CustomersCSV is the customer directory file.
	CustomersCSV string `yaml:"customers_csv"`
	// CatalogCSV is the internet bundle catalog file.
	CatalogCSV string `yaml:"catalog_csv"`
	// PromptsDir overrides embedded prompt templates by file name.
	PromptsDir string `yaml:"prompts_dir"`
}

// FeaturesConfig toggles optional assistant behaviour.
type FeaturesConfig struct {
	// SourceCitations appends a "Sources:" line to generated answers.
	SourceCitations bool `yaml:"source_citations"`
	// HistoryExchanges is the number of prior exchanges sent to the model.
	HistoryExchanges int `yaml:"history_exchanges"`
	// MaxContextTokens is the estimated input budget for one generation call.
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is the sustained chat requests per second allowed per IP.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the per-IP burst size.
	RateBurst int `yaml:"rate_burst"`
}

// SessionConfig holds login session storage settings.
type SessionConfig struct {
	// RedisAddr enables the Redis session store when non-empty.
	RedisAddr string `yaml:"redis_addr"`
	// RedisPassword is the Redis password. Prefer env var SESSION_REDIS_PASSWORD.
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// TTL is a Go duration string (e.g. "12h").
	TTL string `yaml:"ttl"`
}

// HistoryConfig holds conversation history settings.
type HistoryConfig struct {
	// DBPath is the SQLite database path. Empty keeps history in memory.
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives log output from the terminal chat client.
	File string `yaml:"file"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
	Host      string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{KeyModelProvider, func(c *Config) string { return c.Model.Provider }},
	{KeyModelMaxTokens, func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{KeyModelTemperature, func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{KeyModelTopP, func(c *Config) string { return float32Str(c.Model.TopP) }},
	{KeyClassifierModel, func(c *Config) string { return c.Model.ClassifierModel }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.Ark.BaseURL }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{KeyVectorStore, func(c *Config) string { return c.Store.Backend }},
	{KeyChromaDir, func(c *Config) string { return c.Store.ChromaDir }},
	{KeyCollection, func(c *Config) string { return c.Store.Collection }},
	{KeyQdrantHost, func(c *Config) string { return c.Store.Qdrant.Host }},
	{KeyQdrantPort, func(c *Config) string { return intStr(c.Store.Qdrant.Port) }},
	{KeyQdrantAPIKey, func(c *Config) string { return c.Store.Qdrant.APIKey }},
	{KeyQdrantTLS, func(c *Config) string { return boolStr(c.Store.Qdrant.TLS) }},
	{KeyCustomersCSV, func(c *Config) string { return c.Data.CustomersCSV }},
	{KeyCatalogCSV, func(c *Config) string { return c.Data.CatalogCSV }},
	{KeyPromptsDir, func(c *Config) string { return c.Data.PromptsDir }},
	{KeySourceCitations, func(c *Config) string { return boolStr(c.Features.SourceCitations) }},
	{KeyHistoryExchanges, func(c *Config) string { return intStr(c.Features.HistoryExchanges) }},
	{KeyMaxContextTokens, func(c *Config) string { return intStr(c.Features.MaxContextTokens) }},
	{KeyServerHost, func(c *Config) string { return c.Server.Host }},
	{KeyServerPort, func(c *Config) string { return intStr(c.Server.Port) }},
	{KeyRateLimit, func(c *Config) string { return float64Str(c.Server.RateLimit) }},
	{KeyRateBurst, func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{KeyRedisAddr, func(c *Config) string { return c.Session.RedisAddr }},
	{KeyRedisPassword, func(c *Config) string { return c.Session.RedisPassword }},
	{KeyRedisDB, func(c *Config) string { return intStr(c.Session.RedisDB) }},
	{KeySessionTTL, func(c *Config) string { return c.Session.TTL }},
	{KeyHistoryDB, func(c *Config) string { return c.History.DBPath }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{KeyLogFile, func(c *Config) string { return c.Logging.File }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten.
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue
		}
		if err := os.Setenv(m.envKey, yamlVal); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)
	return path, nil
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env")
// without overriding variables that are already set. Missing files are
// skipped silently; malformed files are reported.
func LoadDotEnv(log *slog.Logger, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: failed to load %s: %w", f, err)
		}
		log.Debug("config: loaded env file", slog.String("path", f))
	}
	return nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("ORANGEBOT_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".orangebot", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("orangebot.yaml"); err == nil {
		return "orangebot.yaml"
	}
	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	return float64Str(float64(v))
}

// float64Str converts a float64 to its shortest string, "" for zero.
func float64Str(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
