package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend
	// Ollama holds settings used when Backend is BackendOllama.
	Ollama ProviderOllama
	// OpenAI holds settings used when Backend is BackendOpenAI.
	OpenAI ProviderOpenAI
	// AzureOpenAI holds settings used when Backend is BackendAzure.
	AzureOpenAI ProviderAzureOpenAI
	// Ark holds settings used when Backend is BackendArk.
	Ark ProviderArk
	// Gemini holds settings used when Backend is BackendGemini.
	Gemini ProviderGemini
	// Tuning is applied to every call made through the constructed model.
	Tuning SharedTuning
}

// Validate checks that the settings required by the selected backend are
// present. Error messages name the env var the operator has to set.
func (c *Config) Validate() error {
	var missing []string
	require := func(v, env string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, env)
		}
	}

	switch c.Backend {
	case BackendOllama:
		require(c.Ollama.Host, "OLLAMA_HOST")
		require(c.Ollama.Model, "OLLAMA_MODEL")
	case BackendOpenAI:
		require(c.OpenAI.APIKey, "OPENAI_API_KEY")
		require(c.OpenAI.Model, "OPENAI_MODEL")
	case BackendAzure:
		require(c.AzureOpenAI.APIKey, "AZURE_OPENAI_API_KEY")
		require(c.AzureOpenAI.Endpoint, "AZURE_OPENAI_ENDPOINT")
		require(c.AzureOpenAI.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	case BackendArk:
		require(c.Ark.APIKey, "ARK_API_KEY")
		require(c.Ark.Model, "ARK_MODEL")
	case BackendGemini:
		require(c.Gemini.APIKey, "GOOGLE_API_KEY")
		require(c.Gemini.Model, "GEMINI_MODEL")
	default:
		return fmt.Errorf("provider: unknown backend %q (valid values: ollama, openai, azure, ark, gemini)", c.Backend)
	}

	if len(missing) > 0 {
		return errors.New("provider: " + string(c.Backend) + " backend requires " + strings.Join(missing, ", "))
	}
	if c.Tuning.Temperature < 0 || c.Tuning.Temperature > 2 {
		return fmt.Errorf("provider: temperature %v out of range [0, 2]", c.Tuning.Temperature)
	}
	return nil
}

// ModelName returns the model identifier for the selected backend.
func (c *Config) ModelName() string {
	switch c.Backend {
	case BackendOllama:
		return c.Ollama.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendArk:
		return c.Ark.Model
	case BackendGemini:
		return c.Gemini.Model
	default:
		return ""
	}
}

// withModelName returns a copy of c whose selected backend uses name.
func (c Config) withModelName(name string) Config {
	if name == "" {
		return c
	}
	switch c.Backend {
	case BackendOllama:
		c.Ollama.Model = name
	case BackendOpenAI:
		c.OpenAI.Model = name
	case BackendAzure:
		c.AzureOpenAI.Deployment = name
	case BackendArk:
		c.Ark.Model = name
	case BackendGemini:
		c.Gemini.Model = name
	}
	return c
}

// isAzureReasoningModel reports whether the deployment is an o-series or
// codex-class model. These reject a temperature parameter.
func isAzureReasoningModel(deployment string) bool {
	d := strings.ToLower(deployment)
	for _, p := range []string{"o1", "o3", "o4", "codex"} {
		if strings.HasPrefix(d, p) {
			return true
		}
	}
	return false
}
