package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/orangebot-go/internal/analyzer"
	"github.com/54b3r/orangebot-go/internal/assistant"
)

// ---------------------------------------------------------------------------
// POST /api/chat: validation
// ---------------------------------------------------------------------------

func TestHandleChat_RequiresSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, directReply)
	w := env.do(t, http.MethodPost, "/api/chat", "", chatRequest{Message: "hello"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if len(env.chat.asked) != 0 {
		t.Error("unauthenticated request reached the assistant")
	}
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, directReply)
	token := env.login(t)

	for _, msg := range []string{"", "   \n\t"} {
		w := env.do(t, http.MethodPost, "/api/chat", token, chatRequest{Message: msg})
		if w.Code != http.StatusBadRequest {
			t.Errorf("message %q: expected 400, got %d", msg, w.Code)
		}
	}
	if len(env.chat.asked) != 0 {
		t.Error("blank message reached the assistant")
	}
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, directReply)
	w := env.do(t, http.MethodGet, "/api/chat", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/chat: streaming
// ---------------------------------------------------------------------------

func TestHandleChat_StreamsReply(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, assistant.Reply{
		Text:   "GO 20000 costs 300 EGP.\nDial #222#.",
		Intent: analyzer.IntentMobileInternet,
	})
	token := env.login(t)

	w := env.do(t, http.MethodPost, "/api/chat", token, chatRequest{Message: "  what bundles are there?  "})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type: got %q", ct)
	}

	want := "event: intent\ndata: mobile_internet\n\n" +
		"data: GO 20000 costs 300 EGP.\ndata: Dial #222#.\n\n" +
		"event: done\ndata: [DONE]\n\n"
	if got := w.Body.String(); got != want {
		t.Errorf("stream mismatch\n got: %q\nwant: %q", got, want)
	}

	if len(env.chat.asked) != 1 || env.chat.asked[0] != "what bundles are there?" {
		t.Errorf("asked: %q", env.chat.asked)
	}
	if env.chat.profile == nil || env.chat.profile.Phone != ahmed.Phone {
		t.Errorf("profile not forwarded: %+v", env.chat.profile)
	}
}

func TestHandleChat_Timeout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, directReply)
	env.srv.cfg.ChatTimeout = 20 * time.Millisecond
	env.chat.block = true
	token := env.login(t)

	w := env.do(t, http.MethodPost, "/api/chat", token, chatRequest{Message: "hello"})
	want := "event: intent\ndata: general\n\n" +
		"data: " + assistant.ApologyReply + "\n\n" +
		"event: done\ndata: [DONE]\n\n"
	if got := w.Body.String(); got != want {
		t.Errorf("stream mismatch\n got: %q\nwant: %q", got, want)
	}
	if !strings.Contains(assistant.ApologyReply, "110") {
		t.Error("apology must point the customer at 110")
	}

	// History holds exactly what the customer was shown.
	w = env.do(t, http.MethodGet, "/api/history", token, nil)
	var hist historyResponse
	if err := json.NewDecoder(w.Body).Decode(&hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Messages) != 2 || hist.Messages[1].Content != assistant.ApologyReply {
		t.Errorf("history after timeout: %+v", hist.Messages)
	}
	if m := findMetric(t, env.reg, "orangebot_chat_requests_total", map[string]string{"outcome": "timeout"}); m == nil {
		t.Error("expected outcome=timeout sample")
	}
}

func TestHandleChat_RateLimited(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, directReply)
	rl, stop := newRateLimiter(0.001, 1, env.srv.log)
	t.Cleanup(stop)
	limited := env.srv.requireSession(rl.middleware(http.HandlerFunc(env.srv.handleChat)))
	token := env.login(t)

	codes := make([]int, 0, 2)
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hello"}`))
		req.RemoteAddr = "192.0.2.7:5000"
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes: got %v, want [200 429]", codes)
	}
}

// ---------------------------------------------------------------------------
// sseWriter
// ---------------------------------------------------------------------------

func TestSSEWriter_MultiLine(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sw := &sseWriter{w: rec, flusher: rec}
	n, err := sw.Write([]byte("a\nb\n"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != 4 {
		t.Errorf("n: got %d", n)
	}
	if got := rec.Body.String(); got != "data: a\ndata: b\n\n" {
		t.Errorf("got %q", got)
	}
	if !rec.Flushed {
		t.Error("expected flush")
	}
}
