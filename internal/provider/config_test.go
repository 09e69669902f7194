package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg: Config{
				Backend: BackendOllama,
				Ollama:  ProviderOllama{Host: "http://localhost:11434", Model: "llama3.2"},
			},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: "http://localhost:11434"}},
			wantErr: "OLLAMA_MODEL",
		},

		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg: Config{
				Backend: BackendOpenAI,
				OpenAI:  ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o-mini"},
			},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o-mini"}},
			wantErr: "OPENAI_API_KEY",
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: Config{
				Backend: BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{
					APIKey:     "key",
					Endpoint:   "https://my.openai.azure.com",
					Deployment: "gpt-4o",
					APIVersion: "2024-02-01",
				},
			},
		},
		{
			name: "azure/missing endpoint and deployment",
			cfg: Config{
				Backend:     BackendAzure,
				AzureOpenAI: ProviderAzureOpenAI{APIKey: "key"},
			},
			wantErr: "AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT",
		},

		// ── Ark ───────────────────────────────────────────────────────────────
		{
			name: "ark/valid",
			cfg:  Config{Backend: BackendArk, Ark: ProviderArk{APIKey: "ak", Model: "ep-123"}},
		},
		{
			name:    "ark/missing model",
			cfg:     Config{Backend: BackendArk, Ark: ProviderArk{APIKey: "ak"}},
			wantErr: "ARK_MODEL",
		},

		// ── Gemini ────────────────────────────────────────────────────────────
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{Model: "gemini-1.5-flash"}},
			wantErr: "GOOGLE_API_KEY",
		},

		// ── Tuning / unknown backend ──────────────────────────────────────────
		{
			name: "temperature out of range",
			cfg: Config{
				Backend: BackendOllama,
				Ollama:  ProviderOllama{Host: "http://localhost:11434", Model: "llama3.2"},
				Tuning:  SharedTuning{Temperature: 3},
			},
			wantErr: "temperature",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "unknown"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Role resolution
// ---------------------------------------------------------------------------

func TestConfigFromEnv_Roles(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL", "llama3.2")
	t.Setenv("CLASSIFIER_MODEL", "qwen2.5:3b")
	t.Setenv("MODEL_TEMPERATURE", "")
	t.Setenv("MODEL_TOP_P", "")

	chat := ConfigFromEnv(RoleChat)
	if chat.ModelName() != "llama3.2" {
		t.Errorf("chat model = %q, want llama3.2", chat.ModelName())
	}
	if chat.Tuning.Temperature != 0.2 || chat.Tuning.TopP != 0.9 {
		t.Errorf("chat tuning = %+v, want temperature 0.2 top_p 0.9", chat.Tuning)
	}

	cls := ConfigFromEnv(RoleClassifier)
	if cls.ModelName() != "qwen2.5:3b" {
		t.Errorf("classifier model = %q, want override", cls.ModelName())
	}
	if cls.Tuning.Temperature != 0 {
		t.Errorf("classifier temperature = %v, want 0", cls.Tuning.Temperature)
	}
}

// ---------------------------------------------------------------------------
// Tuned wrapper
// ---------------------------------------------------------------------------

// recordingModel captures the options of the last Generate call.
type recordingModel struct {
	opts []model.Option
}

func (r *recordingModel) Generate(_ context.Context, _ []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	r.opts = opts
	return schema.AssistantMessage("ok", nil), nil
}

func (r *recordingModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func TestTunedModel_CallerOptionsWin(t *testing.T) {
	t.Parallel()

	inner := &recordingModel{}
	m := newTuned(inner, SharedTuning{Temperature: 0.2, TopP: 0.9, MaxTokens: 256})

	if _, err := m.Generate(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	got := model.GetCommonOptions(nil, inner.opts...)
	if got.Temperature == nil || *got.Temperature != 0.2 {
		t.Errorf("default temperature not applied: %+v", got.Temperature)
	}
	if got.MaxTokens == nil || *got.MaxTokens != 256 {
		t.Errorf("default max tokens not applied: %+v", got.MaxTokens)
	}

	if _, err := m.Generate(context.Background(), nil, model.WithTemperature(0)); err != nil {
		t.Fatal(err)
	}
	got = model.GetCommonOptions(nil, inner.opts...)
	if got.Temperature == nil || *got.Temperature != 0 {
		t.Errorf("caller temperature should win, got %+v", got.Temperature)
	}
}

func TestTunedModel_NegativeTemperatureOmitted(t *testing.T) {
	t.Parallel()

	inner := &recordingModel{}
	m := newTuned(inner, SharedTuning{Temperature: -1})
	if _, err := m.Generate(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if got := model.GetCommonOptions(nil, inner.opts...); got.Temperature != nil {
		t.Errorf("temperature should be omitted, got %v", *got.Temperature)
	}
}

func TestIsAzureReasoningModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		deployment string
		want       bool
	}{
		{"o1", true},
		{"o3-mini", true},
		{"O4-MINI", true},
		{"codex-mini", true},
		{"gpt-4o", false},
		{"gpt-4.1", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.deployment, func(t *testing.T) {
			t.Parallel()
			if got := isAzureReasoningModel(tc.deployment); got != tc.want {
				t.Errorf("isAzureReasoningModel(%q) = %v, want %v", tc.deployment, got, tc.want)
			}
		})
	}
}
