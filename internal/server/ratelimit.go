package server

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/orangebot-go/internal/logging"
)

// Per-caller chat limits when none are configured. A chat turn costs two
// model calls, so the sustained rate is low and a small burst absorbs
// shortcut clicks.
const (
	defaultRateLimit = 2
	defaultRateBurst = 5
)

// Login attempts per IP, to slow password guessing.
const (
	loginRateLimit = 0.2
	loginRateBurst = 10
)

// staleAfter is how long an idle caller keeps its bucket.
const staleAfter = 5 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter is a token bucket per caller. A caller is the logged-in
// customer when the request went through requireSession, otherwise the
// client IP. Idle buckets are evicted once a minute.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
	log     *slog.Logger
	now     func() time.Time
}

// newRateLimiter starts the eviction loop; call the returned func to stop it.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		log:     log,
		now:     time.Now,
	}

	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				rl.evict()
			}
		}
	}()
	return rl, func() { close(stopCh) }
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = rl.now()
	return b.limiter.AllowN(b.lastSeen, 1)
}

func (rl *rateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleAfter)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// size reports the number of tracked callers.
func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// middleware rejects over-limit callers with 429 and Retry-After.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)
		if !rl.allow(key) {
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("caller", redactCaller(key)),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many messages, please wait a moment")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerKey identifies who is sending the request.
func callerKey(r *http.Request) string {
	if a := authFromContext(r.Context()); a.profile.Phone != "" {
		return "customer:" + a.profile.Phone
	}
	return "ip:" + clientIP(r)
}

// redactCaller masks customer phone numbers before they reach the log.
func redactCaller(key string) string {
	const prefix = "customer:"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		phone := key[len(prefix):]
		if len(phone) > 4 {
			return prefix + "****" + phone[len(phone)-4:]
		}
	}
	return key
}

// clientIP is RemoteAddr without its port. X-Forwarded-For is not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
