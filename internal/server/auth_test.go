package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/54b3r/orangebot-go/internal/assistant"
	"github.com/54b3r/orangebot-go/internal/session"
)

// ---------------------------------------------------------------------------
// POST /api/login
// ---------------------------------------------------------------------------

func TestHandleLogin_OK(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{})
	w := env.do(t, http.MethodPost, "/api/login", "", loginRequest{Phone: " 01012345678 ", Password: ahmedPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp loginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.Name != "Ahmed" {
		t.Errorf("name: got %q", resp.Name)
	}
	if resp.Phone != "*******5678" {
		t.Errorf("phone must be masked, got %q", resp.Phone)
	}
	if env.sessions.Len() != 1 {
		t.Errorf("expected 1 session, got %d", env.sessions.Len())
	}
}

func TestHandleLogin_Rejected(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body any
		want int
	}{
		{"wrong password", loginRequest{Phone: ahmed.Phone, Password: "nope"}, http.StatusUnauthorized},
		{"unknown phone", loginRequest{Phone: "01099999999", Password: ahmedPassword}, http.StatusUnauthorized},
		{"empty", loginRequest{}, http.StatusUnauthorized},
		{"not json", "{", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, assistant.Reply{})
			var w *httptest.ResponseRecorder
			if s, ok := tc.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(s))
				w = httptest.NewRecorder()
				env.srv.Handler().ServeHTTP(w, req)
			} else {
				w = env.do(t, http.MethodPost, "/api/login", "", tc.body)
			}
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
			if env.sessions.Len() != 0 {
				t.Error("no session may be created on a failed login")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// requireSession
// ---------------------------------------------------------------------------

func TestRequireSession_MissingHeader(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{})
	w := env.do(t, http.MethodGet, "/api/profile", "", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header on 401")
	}
}

func TestRequireSession_UnknownToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{})
	w := env.do(t, http.MethodGet, "/api/profile", "not-a-session", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRequireSession_CustomerRemoved(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{})
	sess, err := env.sessions.Create(t.Context(), "01000000000")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/profile", sess.Token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if _, err := env.sessions.Get(t.Context(), sess.Token); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("orphaned session must be deleted, Get err = %v", err)
	}
}

// brokenSessions fails every lookup.
type brokenSessions struct{ session.Store }

func (brokenSessions) Get(context.Context, string) (session.Session, error) {
	return session.Session{}, errors.New("redis: connection refused")
}

func TestRequireSession_StoreDown(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{})
	env.srv.sessions = brokenSessions{Store: env.sessions}

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	env.srv.requireSession(okHandler).ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Errorf("header %q: got %q, want %q", tc.header, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Profile, logout, history
// ---------------------------------------------------------------------------

func TestHandleProfile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{})
	token := env.login(t)

	w := env.do(t, http.MethodGet, "/api/profile", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, ahmedPassword) || strings.Contains(body, ahmed.Phone) {
		t.Errorf("profile leaks credentials: %s", body)
	}

	var resp profileResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MobilePlan != "GO 7250" {
		t.Errorf("mobile plan: got %q", resp.MobilePlan)
	}
	if !resp.Usage.Mobile.Known || resp.Usage.Mobile.UsedMB != 5250 {
		t.Errorf("mobile usage: %+v", resp.Usage.Mobile)
	}
	if resp.Billing.TotalEGP != 500 {
		t.Errorf("billing total: got %v", resp.Billing.TotalEGP)
	}
}

func TestHandleLogout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, directReply)
	token := env.login(t)
	env.do(t, http.MethodPost, "/api/chat", token, chatRequest{Message: "hello"})
	if len(env.chat.history) != 1 {
		t.Fatalf("expected one history session before logout, got %d", len(env.chat.history))
	}

	w := env.do(t, http.MethodPost, "/api/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if env.sessions.Len() != 0 {
		t.Error("session must be deleted on logout")
	}
	if len(env.chat.history) != 0 {
		t.Error("history must be cleared on logout")
	}
	if w := env.do(t, http.MethodGet, "/api/profile", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("token must be unusable after logout, got %d", w.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, directReply)
	token := env.login(t)

	w := env.do(t, http.MethodGet, "/api/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"messages":[]}` {
		t.Errorf("empty history: got %s", got)
	}

	env.do(t, http.MethodPost, "/api/chat", token, chatRequest{Message: "hello"})

	w = env.do(t, http.MethodGet, "/api/history", token, nil)
	var resp historyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Messages))
	}

	if w := env.do(t, http.MethodDelete, "/api/history", token, nil); w.Code != http.StatusNoContent {
		t.Errorf("clear: expected 204, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/history", token, nil)
	if got := strings.TrimSpace(w.Body.String()); got != `{"messages":[]}` {
		t.Errorf("after clear: got %s", got)
	}
}

func TestHistory_NotKeyedByToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, directReply)
	token := env.login(t)
	env.do(t, http.MethodPost, "/api/chat", token, chatRequest{Message: "hello"})

	if _, ok := env.chat.history[token]; ok {
		t.Fatal("conversation history must not be stored under the bearer token")
	}
	sess, err := env.sessions.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if len(env.chat.history[sess.ID]) != 2 {
		t.Errorf("expected 2 turns under session ID, got %d", len(env.chat.history[sess.ID]))
	}
}
