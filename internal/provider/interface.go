// Package provider constructs the chat and classifier model handles used by
// the assistant. The backend is selected at runtime from MODEL_PROVIDER.
// Supported backends: Ollama, OpenAI, Azure OpenAI, Volcengine Ark, Google Gemini.
package provider

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects Volcengine Ark.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Role distinguishes the two model handles the assistant holds. They share a
// backend but differ in sampling settings and, optionally, model name.
type Role string

const (
	// RoleChat generates customer-facing answers.
	RoleChat Role = "chat"
	// RoleClassifier produces the JSON query analysis and runs deterministic.
	RoleClassifier Role = "classifier"
)

// ProviderOllama holds Ollama connection settings.
type ProviderOllama struct {
	// Host is the Ollama base URL (e.g. http://localhost:11434).
	Host string
	// Model is the Ollama model tag (e.g. llama3.2).
	Model string
}

// ProviderOpenAI holds OpenAI API settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the OpenAI model name (e.g. gpt-4o-mini).
	Model string
}

// ProviderAzureOpenAI holds Azure OpenAI Service settings.
type ProviderAzureOpenAI struct {
	// APIKey is the Azure OpenAI key.
	APIKey string
	// Endpoint is the resource URL (e.g. https://my.openai.azure.com).
	Endpoint string
	// Deployment is the deployment name used as the model.
	Deployment string
	// APIVersion is the REST API version (e.g. 2024-02-01).
	APIVersion string
}

// ProviderArk holds Volcengine Ark settings.
type ProviderArk struct {
	// APIKey is the Ark API key.
	APIKey string
	// Model is the Ark endpoint ID or model name.
	Model string
	// BaseURL overrides the Ark API endpoint.
	BaseURL string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is the Google AI Studio API key.
	APIKey string
	// Model is the Gemini model name (e.g. gemini-1.5-flash).
	Model string
}

// SharedTuning holds the sampling parameters applied to every call made
// through a model handle.
type SharedTuning struct {
	// MaxTokens caps the generated response length.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
	// TopP is the nucleus sampling cut-off. Zero leaves the backend default.
	TopP float32
}
