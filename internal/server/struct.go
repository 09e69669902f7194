package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/orangebot-go/internal/assistant"
	"github.com/54b3r/orangebot-go/internal/customer"
	"github.com/54b3r/orangebot-go/internal/session"
	"github.com/54b3r/orangebot-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds one chat turn (classification, retrieval and
	// generation). Defaults to 2 minutes.
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on
	// POST /api/chat (requests/second). Defaults to 2 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 5.
	RateBurst int
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Deps are the process-scoped collaborators the handlers call.
type Deps struct {
	Conversation chatter
	Customers    directory
	Sessions     session.Store
}

// chatter answers questions within a session and exposes its history.
// *assistant.Conversation satisfies it; tests inject a fake.
type chatter interface {
	Ask(ctx context.Context, session, question string, profile *customer.Profile) assistant.Reply
	History(ctx context.Context, session string) ([]store.Message, error)
	Clear(ctx context.Context, session string) error
}

// directory authenticates and resolves customers. *customer.Directory
// satisfies it.
type directory interface {
	Authenticate(phone, password string) (customer.Profile, error)
	Lookup(phone string) (customer.Profile, bool)
}

// Server is the HTTP front end of the assistant.
type Server struct {
	chat      chatter
	customers directory
	sessions  session.Store

	cfg        *Config
	httpServer *http.Server
	handler    http.Handler
	log        *slog.Logger
	pingers    []Pinger
	metrics    *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// loginRequest is the JSON body for POST /api/login.
type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// loginResponse is returned on successful login. Phone is masked.
type loginResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// profileResponse is the JSON body of GET /api/profile.
type profileResponse struct {
	Name        string                `json:"name"`
	Phone       string                `json:"phone"`
	MobilePlan  string                `json:"mobile_plan"`
	MobileData  string                `json:"monthly_mobile_data_mb"`
	MobileBill  string                `json:"monthly_bill_mobile_amount"`
	RouterPlan  string                `json:"router_plan"`
	RouterQuota string                `json:"monthly_router_quota_mb"`
	RouterBill  string                `json:"monthly_bill_router_amount"`
	Usage       customer.UsageSummary `json:"usage"`
	Billing     customer.Billing      `json:"billing"`
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the customer's question.
	Message string `json:"message"`
}

// historyResponse is the JSON body of GET /api/history.
type historyResponse struct {
	Messages []store.Message `json:"messages"`
}

// shortcutsResponse is the JSON body of GET /api/shortcuts.
type shortcutsResponse struct {
	Questions []string `json:"questions"`
}
