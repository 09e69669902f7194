package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/54b3r/orangebot-go/internal/session"
	"github.com/54b3r/orangebot-go/internal/store"
	"github.com/54b3r/orangebot-go/internal/version"
)

// newReadyTestServer builds a *Server with the given pingers wired in.
func newReadyTestServer(t *testing.T, pingers ...Pinger) *Server {
	t.Helper()
	s := newTestServer(t)
	s.pingers = pingers
	return s
}

// getReady calls GET /api/ready through the full handler chain.
func getReady(t *testing.T, s *Server) (int, readyResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return w.Code, resp
}

// openHistory returns an in-memory history store; closed stores fail Ping.
func openHistory(t *testing.T, closed bool) *store.SQLiteStore {
	t.Helper()
	h, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if closed {
		_ = h.Close()
	} else {
		t.Cleanup(func() { _ = h.Close() })
	}
	return h
}

// openRedisSessions returns a Redis session store; when down is set the
// server is stopped after connecting.
func openRedisSessions(t *testing.T, down bool) *session.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := session.NewRedisStore(context.Background(), session.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })
	if down {
		mr.Close()
	}
	return rs
}

// ---------------------------------------------------------------------------
// GET /api/health: liveness
// ---------------------------------------------------------------------------

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != version.Version {
		t.Errorf("body: %v", body)
	}
}

// ---------------------------------------------------------------------------
// GET /api/ready: readiness
// ---------------------------------------------------------------------------

func TestHandleReady(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		pingers   func(t *testing.T) []Pinger
		wantReady bool
		// failing lists the checks expected to report ok:false.
		failing []string
	}{
		{
			name:      "no dependencies",
			pingers:   func(*testing.T) []Pinger { return nil },
			wantReady: true,
		},
		{
			name: "all healthy",
			pingers: func(t *testing.T) []Pinger {
				return []Pinger{
					NewStorePinger(fakeCounter{n: 412}, "vector_store"),
					PingFunc("history", openHistory(t, false).Ping),
					PingFunc("sessions", session.NewMemoryStore(0).Ping),
				}
			},
			wantReady: true,
		},
		{
			name: "knowledge base not ingested",
			pingers: func(t *testing.T) []Pinger {
				return []Pinger{
					NewStorePinger(fakeCounter{n: 0}, "vector_store"),
					PingFunc("history", openHistory(t, false).Ping),
				}
			},
			failing: []string{"vector_store"},
		},
		{
			name: "history database closed",
			pingers: func(t *testing.T) []Pinger {
				return []Pinger{
					NewStorePinger(fakeCounter{n: 412}, "vector_store"),
					PingFunc("history", openHistory(t, true).Ping),
				}
			},
			failing: []string{"history"},
		},
		{
			name: "redis sessions down",
			pingers: func(t *testing.T) []Pinger {
				return []Pinger{
					PingFunc("sessions", openRedisSessions(t, true).Ping),
					PingFunc("history", openHistory(t, false).Ping),
				}
			},
			failing: []string{"sessions"},
		},
		{
			name: "redis sessions up",
			pingers: func(t *testing.T) []Pinger {
				return []Pinger{PingFunc("sessions", openRedisSessions(t, false).Ping)}
			},
			wantReady: true,
		},
		{
			name: "everything down",
			pingers: func(t *testing.T) []Pinger {
				return []Pinger{
					NewStorePinger(fakeCounter{err: errors.New("connection refused")}, "vector_store"),
					PingFunc("history", openHistory(t, true).Ping),
				}
			},
			failing: []string{"vector_store", "history"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			pingers := tc.pingers(t)
			code, resp := getReady(t, newReadyTestServer(t, pingers...))

			wantCode := http.StatusOK
			if !tc.wantReady {
				wantCode = http.StatusServiceUnavailable
			}
			if code != wantCode || resp.Ready != tc.wantReady {
				t.Fatalf("got %d ready=%v, want %d ready=%v", code, resp.Ready, wantCode, tc.wantReady)
			}
			if len(resp.Checks) != len(pingers) {
				t.Fatalf("expected %d checks, got %d", len(pingers), len(resp.Checks))
			}
			// Checks keep the registration order.
			for i, p := range pingers {
				if resp.Checks[i].Name != p.Name() {
					t.Errorf("check %d: got %q, want %q", i, resp.Checks[i].Name, p.Name())
				}
			}
			for _, c := range resp.Checks {
				wantFail := false
				for _, f := range tc.failing {
					wantFail = wantFail || f == c.Name
				}
				if c.OK == wantFail {
					t.Errorf("check %q: ok=%v, error=%q", c.Name, c.OK, c.Error)
				}
				if wantFail && c.Error == "" {
					t.Errorf("check %q: failing check needs an error", c.Name)
				}
			}
		})
	}
}

func TestHandleReady_EmptyStoreHint(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(t, NewStorePinger(fakeCounter{}, "vector_store"))
	_, resp := getReady(t, s)
	if len(resp.Checks) != 1 || !strings.Contains(resp.Checks[0].Error, "orangebot ingest") {
		t.Errorf("empty store should point at ingest: %+v", resp.Checks)
	}
}
