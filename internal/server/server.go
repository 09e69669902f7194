// Package server exposes the assistant over HTTP: login sessions, the
// customer profile, an SSE chat endpoint, per-session history, popular
// question shortcuts, liveness/readiness probes and Prometheus metrics.
// The server is started by the `orangebot serve` CLI command.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/orangebot-go/internal/analyzer"
	"github.com/54b3r/orangebot-go/internal/assistant"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/version"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// New constructs a Server from deps and cfg.
func New(deps Deps, cfg *Config) (*Server, error) {
	switch {
	case deps.Conversation == nil:
		return nil, fmt.Errorf("server: conversation must not be nil")
	case deps.Customers == nil:
		return nil, fmt.Errorf("server: customer directory must not be nil")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("server: session store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = 2 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		// Must outlast a full chat turn.
		cfg.WriteTimeout = cfg.ChatTimeout + 30*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	s := &Server{
		chat:      deps.Conversation,
		customers: deps.Customers,
		sessions:  deps.Sessions,
		cfg:       cfg,
		log:       log,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stopChat := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	loginRL, stopLogin := newRateLimiter(loginRateLimit, loginRateBurst, log)
	s.stopRL = func() { stopChat(); stopLogin() }

	mux := http.NewServeMux()
	s.route(mux, "POST /api/login", "login", loginRL.middleware(http.HandlerFunc(s.handleLogin)))
	s.route(mux, "POST /api/logout", "logout", s.requireSession(http.HandlerFunc(s.handleLogout)))
	s.route(mux, "GET /api/profile", "profile", s.requireSession(http.HandlerFunc(s.handleProfile)))
	s.route(mux, "POST /api/chat", "chat", s.requireSession(rl.middleware(http.HandlerFunc(s.handleChat))))
	s.route(mux, "GET /api/shortcuts", "shortcuts", http.HandlerFunc(s.handleShortcuts))
	s.route(mux, "GET /api/history", "history", s.requireSession(http.HandlerFunc(s.handleHistory)))
	s.route(mux, "DELETE /api/history", "history_clear", s.requireSession(http.HandlerFunc(s.handleHistoryClear)))
	s.route(mux, "GET /api/health", "health", http.HandlerFunc(s.handleHealth))
	s.route(mux, "GET /api/ready", "ready", http.HandlerFunc(s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.handler = requestLogger(log, mux)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// route registers h under pattern, instrumented with the handler label name.
func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.Handler) {
	mux.Handle(pattern, s.metrics.instrument(name, h))
}

// Handler returns the fully wired HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /api/chat. The reply is sent as Server-Sent
// Events: an "intent" event, the answer as data frames, then "done". A turn
// cut short by ChatTimeout streams the apology that history recorded.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	auth := authFromContext(r.Context())

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	profile := auth.profile
	reply := s.chat.Ask(ctx, auth.session.ID, req.Message, &profile)

	outcome := "ok"
	switch {
	case reply.Failed && errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
	case reply.Failed:
		outcome = "error"
	}
	if reply.Failed && reply.Text == "" {
		reply.Text = assistant.ApologyReply
	}
	if reply.Intent == "" {
		reply.Intent = analyzer.IntentGeneral
	}
	s.metrics.observeChat(outcome, string(reply.Intent), time.Since(start))
	log.Info("chat turn",
		slog.String("intent", string(reply.Intent)),
		slog.Bool("direct", reply.Direct),
		slog.Int("documents", len(reply.Documents)),
		slog.String("outcome", outcome),
	)

	fmt.Fprintf(w, "event: intent\ndata: %s\n\n", reply.Intent)
	sw := &sseWriter{w: w, flusher: flusher}
	if _, err := sw.Write([]byte(reply.Text)); err != nil {
		log.Warn("chat: client went away", slog.Any("error", err))
		return
	}
	fmt.Fprintf(w, "event: done\ndata: [DONE]\n\n")
	flusher.Flush()
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

// handleShortcuts handles GET /api/shortcuts.
func (s *Server) handleShortcuts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, shortcutsResponse{Questions: assistant.PopularQuestions})
}

// sseWriter wraps an http.ResponseWriter to emit Server-Sent Event data frames.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// Write formats p as one SSE data event and flushes it. Each line of p gets
// its own "data: " prefix so multi-line answers never break the frame.
func (s *sseWriter) Write(p []byte) (n int, err error) {
	chunk := strings.TrimRight(string(bytes.Clone(p)), "\n")
	var buf strings.Builder
	for _, line := range strings.Split(chunk, "\n") {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	if _, err = fmt.Fprint(s.w, buf.String()); err != nil {
		return 0, err
	}
	s.flusher.Flush()
	return len(p), nil
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeJSON encodes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends {"error": msg} with status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
