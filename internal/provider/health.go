package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HealthChecker probes a backend without generating tokens.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// httpHealthCheck issues a GET against a cheap listing endpoint.
type httpHealthCheck struct {
	url    string
	header http.Header
	client *http.Client
}

// NewHealthCheck returns a zero-cost probe for cfg's backend, or nil when
// the backend has no cheap endpoint (Ark, Gemini).
func NewHealthCheck(cfg *Config) HealthChecker {
	h := &httpHealthCheck{header: http.Header{}, client: &http.Client{Timeout: 5 * time.Second}}
	switch cfg.Backend {
	case BackendOllama:
		h.url = strings.TrimRight(cfg.Ollama.Host, "/") + "/api/tags"
	case BackendOpenAI:
		h.url = "https://api.openai.com/v1/models"
		h.header.Set("Authorization", "Bearer "+cfg.OpenAI.APIKey)
	case BackendAzure:
		h.url = fmt.Sprintf("%s/openai/models?api-version=%s",
			strings.TrimRight(cfg.AzureOpenAI.Endpoint, "/"), cfg.AzureOpenAI.APIVersion)
		h.header.Set("api-key", cfg.AzureOpenAI.APIKey)
	default:
		return nil
	}
	return h
}

// HealthCheck returns nil on any 2xx response.
func (h *httpHealthCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: health request: %w", err)
	}
	for k, v := range h.header {
		req.Header[k] = v
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider: health check: status %d", resp.StatusCode)
	}
	return nil
}
