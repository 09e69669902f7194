package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env var names read by more than one package.
const (
	KeyModelProvider    = "MODEL_PROVIDER"
	KeyModelMaxTokens   = "MODEL_MAX_TOKENS"
	KeyModelTemperature = "MODEL_TEMPERATURE"
	KeyModelTopP        = "MODEL_TOP_P"
	KeyClassifierModel  = "CLASSIFIER_MODEL"

	KeyVectorStore  = "VECTOR_STORE"
	KeyChromaDir    = "CHROMA_DIR"
	KeyCollection   = "VECTOR_COLLECTION"
	KeyQdrantHost   = "QDRANT_HOST"
	KeyQdrantPort   = "QDRANT_PORT"
	KeyQdrantAPIKey = "QDRANT_API_KEY"
	KeyQdrantTLS    = "QDRANT_TLS"

	KeyCustomersCSV = "CUSTOMERS_CSV"
	KeyCatalogCSV   = "CATALOG_CSV"
	KeyPromptsDir   = "PROMPTS_DIR"

	KeySourceCitations  = "SOURCE_CITATIONS"
	KeyHistoryExchanges = "HISTORY_EXCHANGES"
	KeyMaxContextTokens = "MAX_CONTEXT_TOKENS"

	KeyServerHost = "SERVER_HOST"
	KeyServerPort = "SERVER_PORT"
	KeyRateLimit  = "SERVER_RATE_LIMIT"
	KeyRateBurst  = "SERVER_RATE_BURST"

	KeyRedisAddr     = "SESSION_REDIS_ADDR"
	KeyRedisPassword = "SESSION_REDIS_PASSWORD"
	KeyRedisDB       = "SESSION_REDIS_DB"
	KeySessionTTL    = "SESSION_TTL"

	KeyHistoryDB = "HISTORY_DB"
	KeyLogFile   = "LOG_FILE"
)

// Defaults for file locations and store naming.
const (
	DefaultChromaDir    = "chroma_db"
	DefaultCollection   = "documents"
	DefaultCustomersCSV = "data/processed/customers_stimulation.csv"
	DefaultCatalogCSV   = "data/raw/internet_data.csv"
	DefaultKnowledge    = "data/processed/documents_for_rag_final.jsonl"
	DefaultLogFile      = "orangebot.log"
)

// String returns the env var value for key, or fallback if unset or empty.
func String(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Int returns the env var value for key parsed as an int, or fallback.
func Int(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

// Float32 returns the env var value for key parsed as a float32, or fallback.
func Float32(key string, fallback float32) float32 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 32)
	if err != nil {
		return fallback
	}
	return float32(v)
}

// Float64 returns the env var value for key parsed as a float64, or fallback.
func Float64(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return fallback
	}
	return v
}

// Bool returns the env var value for key parsed as a bool, or fallback.
func Bool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

// Duration returns the env var value for key parsed as a time.Duration, or fallback.
func Duration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
