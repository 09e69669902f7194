package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/orangebot-go/internal/provider"
)

// LLMPinger probes the chat backend. It prefers the provider's zero-cost
// health endpoint and only falls back to a tiny Generate call for backends
// without one.
type LLMPinger struct {
	model       model.BaseChatModel
	healthCheck provider.HealthChecker
	name        string
}

// NewLLMPinger constructs an LLMPinger. hc may be nil.
func NewLLMPinger(m model.BaseChatModel, hc provider.HealthChecker, name string) *LLMPinger {
	return &LLMPinger{model: m, healthCheck: hc, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping probes the LLM backend.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.healthCheck != nil {
		if err := p.healthCheck.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", p.name, err)
		}
		return nil
	}
	if p.model == nil {
		return fmt.Errorf("%s: no model configured", p.name)
	}

	slog.Debug("pinger: using Generate-based health check", slog.String("backend", p.name))
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")}, model.WithMaxTokens(1))
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// funcPinger adapts a Ping method value to the Pinger interface.
type funcPinger struct {
	name string
	ping func(context.Context) error
}

// PingFunc returns a Pinger named name that calls ping. Session stores,
// the history database and the Qdrant store expose suitable Ping methods.
func PingFunc(name string, ping func(context.Context) error) Pinger {
	return &funcPinger{name: name, ping: ping}
}

func (p *funcPinger) Name() string                   { return p.name }
func (p *funcPinger) Ping(ctx context.Context) error { return p.ping(ctx) }

// counter is implemented by every rag.VectorStore.
type counter interface {
	Count(ctx context.Context) (int, error)
}

// StorePinger reports the vector store ready when it answers Count. An
// empty collection is reported as an error, since answers would carry no
// knowledge-base context until `orangebot ingest` has run.
type StorePinger struct {
	store counter
	name  string
}

// NewStorePinger constructs a StorePinger.
func NewStorePinger(store counter, name string) *StorePinger {
	return &StorePinger{store: store, name: name}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return p.name }

// Ping counts the stored documents.
func (p *StorePinger) Ping(ctx context.Context) error {
	n, err := p.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("collection is empty; run `orangebot ingest`")
	}
	return nil
}
