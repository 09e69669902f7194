package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/orangebot-go/internal/config"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/server"
	"github.com/54b3r/orangebot-go/internal/session"
	"github.com/54b3r/orangebot-go/internal/tracing"
)

// NewServeCmd constructs the `orangebot serve` command, which starts the
// HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the OrangeBot HTTP API",
		Long: `Start the OrangeBot HTTP server.

The server exposes login sessions, the customer profile, an SSE chat endpoint,
per-session history, popular question shortcuts, health/readiness probes and
Prometheus metrics.

Examples:
  orangebot serve
  orangebot serve --port 9090
  SESSION_REDIS_ADDR=localhost:6379 orangebot serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			flush, ok := tracing.Install()
			defer flush()
			if ok {
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			a, err := newApp(ctx, log)
			defer a.Close()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			sessions, err := openSessions(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = sessions.Close() }()
			if ms, ok := sessions.(*session.MemoryStore); ok {
				go ms.SweepEvery(ctx, time.Minute)
			}

			if !cmd.Flags().Changed("host") {
				host = config.String(config.KeyServerHost, host)
			}
			if !cmd.Flags().Changed("port") {
				port = config.Int(config.KeyServerPort, port)
			}

			srv, err := server.New(server.Deps{
				Conversation: a.conversation,
				Customers:    a.customers,
				Sessions:     sessions,
			}, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   buildPingers(a, sessions),
				RateLimit: config.Float64(config.KeyRateLimit, 0),
				RateBurst: config.Int(config.KeyRateBurst, 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
