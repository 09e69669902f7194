package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewHealthCheck_Ollama(t *testing.T) {
	t.Parallel()

	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(srv.Close)

	hc := NewHealthCheck(&Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: srv.URL + "/"}})
	if hc == nil {
		t.Fatal("expected a health check for ollama")
	}
	if err := hc.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if path != "/api/tags" {
		t.Errorf("path = %q, want /api/tags", path)
	}
}

func TestNewHealthCheck_Status(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	hc := NewHealthCheck(&Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{
		APIKey: "k", Endpoint: srv.URL, APIVersion: "2024-02-01",
	}})
	if err := hc.HealthCheck(context.Background()); err == nil {
		t.Error("expected error for 503")
	}
}

func TestNewHealthCheck_NoCheapProbe(t *testing.T) {
	t.Parallel()
	for _, b := range []Backend{BackendArk, BackendGemini} {
		if hc := NewHealthCheck(&Config{Backend: b}); hc != nil {
			t.Errorf("%s: expected nil health check", b)
		}
	}
}
