package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/orangebot-go/internal/analyzer"
	"github.com/54b3r/orangebot-go/internal/assistant"
	"github.com/54b3r/orangebot-go/internal/customer"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/session"
	"github.com/54b3r/orangebot-go/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeChatter implements chatter. Every Ask is recorded and appended to a
// per-session history so the history endpoints have something to return.
type fakeChatter struct {
	mu      sync.Mutex
	reply   assistant.Reply
	asked   []string
	profile *customer.Profile
	history map[string][]store.Message
	// block, when set, makes Ask wait for ctx to end.
	block bool
}

func newFakeChatter(reply assistant.Reply) *fakeChatter {
	return &fakeChatter{reply: reply, history: map[string][]store.Message{}}
}

func (f *fakeChatter) Ask(ctx context.Context, sess, question string, profile *customer.Profile) assistant.Reply {
	reply := f.reply
	if f.block {
		<-ctx.Done()
		reply = assistant.Reply{Text: assistant.ApologyReply, Failed: true}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, question)
	f.profile = profile
	f.history[sess] = append(f.history[sess],
		store.Message{Role: store.RoleUser, Content: question},
		store.Message{Role: store.RoleAssistant, Content: reply.Text},
	)
	return reply
}

func (f *fakeChatter) History(_ context.Context, sess string) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[sess], nil
}

func (f *fakeChatter) Clear(_ context.Context, sess string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.history, sess)
	return nil
}

// ahmed is the only customer in the test directory.
var ahmed = customer.Profile{
	Phone:             "01012345678",
	Name:              "Ahmed",
	MobilePlan:        "GO 7250",
	MobileDataMB:      "7250",
	MobileBillEGP:     "150",
	RemainingMobileMB: "2000",
	RouterPlan:        "Home 140",
	RouterQuotaMB:     "140000",
	RouterBillEGP:     "350",
	RemainingRouterMB: "40000",
}

const ahmedPassword = "s3cret"

// testEnv bundles a Server with the fakes behind it.
type testEnv struct {
	srv      *Server
	chat     *fakeChatter
	sessions *session.MemoryStore
	reg      *prometheus.Registry
}

// newTestEnv builds a fully wired Server with an isolated metrics registry.
func newTestEnv(t *testing.T, reply assistant.Reply) *testEnv {
	t.Helper()
	env := &testEnv{
		chat:     newFakeChatter(reply),
		sessions: session.NewMemoryStore(session.DefaultTTL),
		reg:      prometheus.NewRegistry(),
	}
	srv, err := New(Deps{
		Conversation: env.chat,
		Customers:    customer.NewDirectory([]customer.Profile{ahmed.WithPassword(ahmedPassword)}),
		Sessions:     env.sessions,
	}, &Config{
		Logger:          logging.Discard(),
		RateLimit:       1000,
		RateBurst:       1000,
		MetricsRegistry: env.reg,
		MetricsGatherer: env.reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(srv.stopRL)
	env.srv = srv
	return env
}

// newTestServer is a Server for handler-level tests that need no session.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestEnv(t, assistant.Reply{}).srv
}

// do sends a request through the full handler chain.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:40000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

// login performs POST /api/login for ahmed and returns the token.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/login", "", loginRequest{Phone: ahmed.Phone, Password: ahmedPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp loginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.Token
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew_RequiresDeps(t *testing.T) {
	t.Parallel()

	chat := newFakeChatter(assistant.Reply{})
	dir := customer.NewDirectory(nil)
	sessions := session.NewMemoryStore(0)

	cases := []struct {
		name string
		deps Deps
	}{
		{"no conversation", Deps{Customers: dir, Sessions: sessions}},
		{"no customers", Deps{Conversation: chat, Sessions: sessions}},
		{"no sessions", Deps{Conversation: chat, Customers: dir}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tc.deps, &Config{MetricsRegistry: prometheus.NewRegistry()}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	if s.cfg.Host != "127.0.0.1" || s.cfg.Port != 8080 {
		t.Errorf("addr defaults: got %s:%d", s.cfg.Host, s.cfg.Port)
	}
	if s.cfg.WriteTimeout <= s.cfg.ChatTimeout {
		t.Errorf("WriteTimeout %v must exceed ChatTimeout %v", s.cfg.WriteTimeout, s.cfg.ChatTimeout)
	}
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{})
	w := env.do(t, http.MethodGet, "/api/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestHandleShortcuts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{})
	w := env.do(t, http.MethodGet, "/api/shortcuts", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp shortcutsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Questions) != len(assistant.PopularQuestions) {
		t.Errorf("expected %d questions, got %d", len(assistant.PopularQuestions), len(resp.Questions))
	}
}

// directReply is a typical greeting answer used by several tests.
var directReply = assistant.Reply{Text: "Hi Ahmed", Intent: analyzer.IntentGreeting, Direct: true}
