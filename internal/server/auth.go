package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/orangebot-go/internal/customer"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/session"
	"github.com/54b3r/orangebot-go/internal/store"
)

// authKey is the context key for the resolved session.
type authKey struct{}

// authContext is what requireSession attaches to the request.
type authContext struct {
	session session.Session
	profile customer.Profile
}

func withAuth(ctx context.Context, a authContext) context.Context {
	return context.WithValue(ctx, authKey{}, a)
}

// authFromContext returns the session resolved by requireSession. Handlers
// behind requireSession can rely on it being present.
func authFromContext(ctx context.Context) authContext {
	a, _ := ctx.Value(authKey{}).(authContext)
	return a
}

// requireSession resolves the Bearer token to a session and its customer
// profile. Requests without a valid token receive 401 with a
// WWW-Authenticate: Bearer challenge. Token values are never logged.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		token := bearerToken(r)
		if token == "" {
			log.Warn("auth: missing Authorization header", slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", `Bearer realm="orangebot"`)
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		sess, err := s.sessions.Get(r.Context(), token)
		switch {
		case errors.Is(err, session.ErrNotFound):
			log.Warn("auth: unknown or expired session", slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", `Bearer realm="orangebot" error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		case err != nil:
			log.Error("auth: session store unavailable", slog.Any("error", err))
			writeError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}

		profile, ok := s.customers.Lookup(sess.Phone)
		if !ok {
			log.Warn("auth: session customer no longer in directory")
			_ = s.sessions.Delete(r.Context(), token)
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ctx := withAuth(r.Context(), authContext{session: sess, profile: profile})
		ctx = logging.WithLogger(ctx, log.With(slog.String("customer", profile.MaskedPhone())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleLogin handles POST /api/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := s.customers.Authenticate(strings.TrimSpace(req.Phone), req.Password)
	if err != nil {
		s.metrics.loginsTotal.WithLabelValues("rejected").Inc()
		log.Warn("login rejected")
		writeError(w, http.StatusUnauthorized, "invalid phone number or password")
		return
	}

	sess, err := s.sessions.Create(r.Context(), profile.Phone)
	if err != nil {
		s.metrics.loginsTotal.WithLabelValues("error").Inc()
		log.Error("login: creating session failed", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "could not create session")
		return
	}

	s.metrics.loginsTotal.WithLabelValues("ok").Inc()
	log.Info("login", slog.String("customer", profile.MaskedPhone()))
	writeJSON(w, http.StatusOK, loginResponse{
		Token: sess.Token,
		Name:  profile.Name,
		Phone: profile.MaskedPhone(),
	})
}

// handleLogout handles POST /api/logout: the session and its history are
// deleted.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	auth := authFromContext(r.Context())

	if err := s.chat.Clear(r.Context(), auth.session.ID); err != nil {
		log.Warn("logout: clearing history failed", slog.Any("error", err))
	}
	if err := s.sessions.Delete(r.Context(), auth.session.Token); err != nil {
		log.Error("logout: deleting session failed", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "could not end session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// handleProfile handles GET /api/profile. The password never leaves the
// directory and the phone number is masked.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p := authFromContext(r.Context()).profile
	writeJSON(w, http.StatusOK, profileResponse{
		Name:        p.Name,
		Phone:       p.MaskedPhone(),
		MobilePlan:  p.MobilePlan,
		MobileData:  p.MobileDataMB,
		MobileBill:  p.MobileBillEGP,
		RouterPlan:  p.RouterPlan,
		RouterQuota: p.RouterQuotaMB,
		RouterBill:  p.RouterBillEGP,
		Usage:       p.UsageSummary(),
		Billing:     p.BillingSummary(),
	})
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	auth := authFromContext(r.Context())
	msgs, err := s.chat.History(r.Context(), auth.session.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("history: load failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	resp := historyResponse{Messages: msgs}
	if resp.Messages == nil {
		resp.Messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHistoryClear handles DELETE /api/history.
func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	auth := authFromContext(r.Context())
	if err := s.chat.Clear(r.Context(), auth.session.ID); err != nil {
		logging.FromContext(r.Context()).Error("history: clear failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "could not clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns an empty string if the header is absent or malformed.
func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return ""
	}
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
