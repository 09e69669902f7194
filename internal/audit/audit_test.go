package audit

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSanitiseKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key, value, want string
	}{
		{"OPENAI_API_KEY", "sk-abc123", "set"},
		{"OPENAI_API_KEY", "", "unset"},
		{"SESSION_REDIS_PASSWORD", "hunter2", "set"},
		{"MODEL_PROVIDER", "ollama", "ollama"},
		{"MODEL_PROVIDER", "", "unset"},
		{"VECTOR_STORE", "chromem", "chromem"},
	}
	for _, tt := range tests {
		if got := SanitiseKey(tt.key, tt.value); got != tt.want {
			t.Errorf("SanitiseKey(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestIsSecret(t *testing.T) {
	t.Parallel()
	if !IsSecret("QDRANT_API_KEY") {
		t.Error("QDRANT_API_KEY should be secret")
	}
	if IsSecret("QDRANT_HOST") {
		t.Error("QDRANT_HOST should not be secret")
	}
}

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-very-secret")
	t.Setenv("MODEL_PROVIDER", "openai")

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	LogCommandStart(log, "serve", "")

	out := buf.String()
	if strings.Contains(out, "sk-very-secret") {
		t.Fatalf("secret value leaked into audit log: %s", out)
	}
	if !strings.Contains(out, `"OPENAI_API_KEY":"set"`) {
		t.Errorf("expected presence marker for OPENAI_API_KEY, got %s", out)
	}
	if !strings.Contains(out, `"MODEL_PROVIDER":"openai"`) {
		t.Errorf("expected MODEL_PROVIDER value, got %s", out)
	}
	if !strings.Contains(out, `"config_file":"none"`) {
		t.Errorf("expected config_file none, got %s", out)
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := SanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := SanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := home + "/.orangebot/config.yaml"
		if got := SanitiseConfigPath(p); got != "~/.orangebot/config.yaml" {
			t.Errorf("expected '~/.orangebot/config.yaml', got %q", got)
		}
	}
}
