package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/orangebot-go/internal/analyzer"
	"github.com/54b3r/orangebot-go/internal/assistant"
	"github.com/54b3r/orangebot-go/internal/catalog"
	"github.com/54b3r/orangebot-go/internal/config"
	"github.com/54b3r/orangebot-go/internal/customer"
	"github.com/54b3r/orangebot-go/internal/embedder"
	"github.com/54b3r/orangebot-go/internal/prompts"
	"github.com/54b3r/orangebot-go/internal/provider"
	"github.com/54b3r/orangebot-go/internal/rag"
	"github.com/54b3r/orangebot-go/internal/retrieval"
	"github.com/54b3r/orangebot-go/internal/server"
	"github.com/54b3r/orangebot-go/internal/session"
	"github.com/54b3r/orangebot-go/internal/store"
)

// app holds the process-scoped collaborators shared by serve, chat and ask.
type app struct {
	log          *slog.Logger
	providerCfg  provider.Config
	chatModel    model.BaseChatModel
	vectors      rag.VectorStore
	customers    *customer.Directory
	history      *store.SQLiteStore
	conversation *assistant.Conversation
	closers      []func() error
}

// newApp loads the data files, opens the stores and builds the assistant.
// Call Close when done, also after an error.
func newApp(ctx context.Context, log *slog.Logger) (*app, error) {
	a := &app{log: log}

	a.providerCfg = provider.ConfigFromEnv(provider.RoleChat)
	chatModel, err := provider.New(ctx, &a.providerCfg)
	if err != nil {
		return a, fmt.Errorf("failed to initialise chat model: %w", err)
	}
	a.chatModel = chatModel

	classifierCfg := provider.ConfigFromEnv(provider.RoleClassifier)
	classifierModel, err := provider.New(ctx, &classifierCfg)
	if err != nil {
		return a, fmt.Errorf("failed to initialise classifier model: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(a.providerCfg.Backend)),
		slog.String("model", a.providerCfg.ModelName()),
		slog.String("classifier_model", classifierCfg.ModelName()),
	)

	set, err := prompts.Load(config.String(config.KeyPromptsDir, ""))
	if err != nil {
		return a, err
	}

	a.customers = customer.Load(config.String(config.KeyCustomersCSV, config.DefaultCustomersCSV), log)
	bundles := catalog.Load(config.String(config.KeyCatalogCSV, config.DefaultCatalogCSV), log)

	if err := embedder.Validate(log); err != nil {
		return a, err
	}
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return a, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	a.vectors, err = openVectorStore(ctx, log)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, a.vectors.Close)

	index, err := rag.NewIndex(emb, a.vectors)
	if err != nil {
		return a, err
	}

	a.history, err = openHistory(log)
	if err != nil {
		return a, err
	}
	a.closers = append(a.closers, a.history.Close)

	gen, err := assistant.NewGenerator(assistant.Deps{
		Classifier: analyzer.New(classifierModel, set, log),
		Retriever:  retrieval.New(index, log),
		Chat:       chatModel,
		Prompts:    set,
		Catalog:    bundles,
		Logger:     log,
	}, assistant.Options{
		Citations:        config.Bool(config.KeySourceCitations, false),
		HistoryExchanges: config.Int(config.KeyHistoryExchanges, assistant.DefaultHistoryExchanges),
		MaxContextTokens: config.Int(config.KeyMaxContextTokens, 0),
	})
	if err != nil {
		return a, err
	}
	a.conversation = assistant.NewConversation(gen, a.history, assistant.DefaultHistoryTurns, log)
	return a, nil
}

// Close releases the stores in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", slog.Any("error", err))
		}
	}
	a.closers = nil
}

// openVectorStore opens the backend selected by VECTOR_STORE.
func openVectorStore(ctx context.Context, log *slog.Logger) (rag.VectorStore, error) {
	collection := config.String(config.KeyCollection, config.DefaultCollection)

	switch backend := strings.ToLower(config.String(config.KeyVectorStore, "chromem")); backend {
	case "chromem":
		dir := config.String(config.KeyChromaDir, config.DefaultChromaDir)
		s, err := rag.NewChromemStore(rag.ChromemConfig{Dir: dir, Collection: collection})
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem store at %s: %w", dir, err)
		}
		log.Info("vector store ready", slog.String("backend", backend), slog.String("dir", dir), slog.String("collection", collection))
		return s, nil

	case "qdrant":
		host := config.String(config.KeyQdrantHost, "localhost")
		port := config.Int(config.KeyQdrantPort, 6334)
		s, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: collection,
			VectorSize: uint64(embedder.DefaultDimensions(embedder.Backend())), //nolint:gosec // dimensions are bounded
			APIKey:     config.String(config.KeyQdrantAPIKey, ""),
			UseTLS:     config.Bool(config.KeyQdrantTLS, false),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("vector store ready", slog.String("backend", backend), slog.String("host", host), slog.Int("port", port), slog.String("collection", collection))
		return s, nil

	default:
		return nil, fmt.Errorf("unknown %s %q (valid values: chromem, qdrant)", config.KeyVectorStore, backend)
	}
}

// openHistory opens the conversation store. HISTORY_DB unset keeps history
// in memory for the lifetime of the process.
func openHistory(log *slog.Logger) (*store.SQLiteStore, error) {
	path := config.String(config.KeyHistoryDB, store.MemoryPath)
	h, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	log.Info("history: store opened", slog.String("path", path))
	return h, nil
}

// openSessions returns the Redis session store when SESSION_REDIS_ADDR is
// set and the in-memory store otherwise.
func openSessions(ctx context.Context, log *slog.Logger) (session.Store, error) {
	ttl := config.Duration(config.KeySessionTTL, session.DefaultTTL)
	addr := config.String(config.KeyRedisAddr, "")
	if addr == "" {
		log.Info("sessions: in-memory store", slog.Duration("ttl", ttl))
		return session.NewMemoryStore(ttl), nil
	}
	s, err := session.NewRedisStore(ctx, session.RedisConfig{
		Addr:     addr,
		Password: config.String(config.KeyRedisPassword, ""),
		DB:       config.Int(config.KeyRedisDB, 0),
		TTL:      ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	log.Info("sessions: redis store", slog.String("addr", addr), slog.Duration("ttl", ttl))
	return s, nil
}

// pinger is implemented by stores that can report their own reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// buildPingers lists the readiness probes for the running process. sessions
// may be nil when no session store is in use.
func buildPingers(a *app, sessions session.Store) []server.Pinger {
	pingers := []server.Pinger{
		server.NewLLMPinger(a.chatModel, provider.NewHealthCheck(&a.providerCfg), string(a.providerCfg.Backend)),
		server.NewStorePinger(a.vectors, "vector_store"),
		server.PingFunc("history", a.history.Ping),
	}
	if p, ok := a.vectors.(pinger); ok {
		pingers = append(pingers, server.PingFunc("vector_store_connection", p.Ping))
	}
	if sessions != nil {
		pingers = append(pingers, server.PingFunc("sessions", sessions.Ping))
	}
	return pingers
}
