package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/orangebot-go/internal/config"
)

// Sampling defaults for each role.
const (
	defaultChatTemperature = 0.2
	defaultChatTopP        = 0.9
	defaultMaxTokens       = 1024
	classifierMaxTokens    = 512
)

// NewFromEnv constructs the model handle for role by reading provider
// configuration from environment variables. MODEL_PROVIDER selects the
// backend; each provider uses its own native credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER    = ollama | openai | azure | ark | gemini (default: ollama)
//
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3.2)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o-mini)
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Ark:     ARK_API_KEY, ARK_MODEL, ARK_BASE_URL
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-1.5-flash)
//
//	Chat:       MODEL_MAX_TOKENS (default: 1024), MODEL_TEMPERATURE (default: 0.2),
//	            MODEL_TOP_P (default: 0.9)
//	Classifier: CLASSIFIER_MODEL overrides the model name; temperature is always 0.
func NewFromEnv(ctx context.Context, role Role) (model.BaseChatModel, error) {
	cfg := ConfigFromEnv(role)
	return New(ctx, &cfg)
}

// ConfigFromEnv resolves the Config for role from the environment.
func ConfigFromEnv(role Role) Config {
	cfg := Config{
		Backend: Backend(config.String(config.KeyModelProvider, string(BackendOllama))),
		Ollama: ProviderOllama{
			Host:  config.String("OLLAMA_HOST", "http://localhost:11434"),
			Model: config.String("OLLAMA_MODEL", "llama3.2"),
		},
		OpenAI: ProviderOpenAI{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  config.String("OPENAI_MODEL", "gpt-4o-mini"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion: config.String("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Ark: ProviderArk{
			APIKey:  os.Getenv("ARK_API_KEY"),
			Model:   os.Getenv("ARK_MODEL"),
			BaseURL: os.Getenv("ARK_BASE_URL"),
		},
		Gemini: ProviderGemini{
			APIKey: os.Getenv("GOOGLE_API_KEY"),
			Model:  config.String("GEMINI_MODEL", "gemini-1.5-flash"),
		},
	}

	switch role {
	case RoleClassifier:
		cfg = cfg.withModelName(os.Getenv(config.KeyClassifierModel))
		cfg.Tuning = SharedTuning{MaxTokens: classifierMaxTokens, Temperature: 0}
	default:
		cfg.Tuning = SharedTuning{
			MaxTokens:   config.Int(config.KeyModelMaxTokens, defaultMaxTokens),
			Temperature: config.Float32(config.KeyModelTemperature, defaultChatTemperature),
			TopP:        config.Float32(config.KeyModelTopP, defaultChatTopP),
		}
	}
	return cfg
}

// New constructs a model handle from an explicit Config, delegating to the
// appropriate backend factory function. It validates the config first so
// callers get a clear error at startup rather than on the first request.
// The returned model applies cfg.Tuning to every call.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		m   model.BaseChatModel
		err error
	)
	switch cfg.Backend {
	case BackendOllama:
		m, err = newOllama(ctx, cfg)
	case BackendOpenAI:
		m, err = newOpenAI(ctx, cfg)
	case BackendAzure:
		m, err = newAzure(ctx, cfg)
	case BackendArk:
		m, err = newArk(ctx, cfg)
	case BackendGemini:
		m, err = newGemini(ctx, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("provider: create %s model: %w", cfg.Backend, err)
	}

	tuning := cfg.Tuning
	if cfg.Backend == BackendAzure && isAzureReasoningModel(cfg.AzureOpenAI.Deployment) {
		tuning.Temperature = -1
		tuning.TopP = 0
	}
	return newTuned(m, tuning), nil
}
