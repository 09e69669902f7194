// Package session issues and resolves login sessions. A session binds an
// opaque UUID token to a customer phone number for a sliding TTL. Sessions
// live in Redis when SESSION_REDIS_ADDR is set, otherwise in process memory.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 2 * time.Hour

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("session: not found")

// Session is one authenticated login. Token is the bearer credential; ID
// names the session elsewhere, such as in conversation history, and never
// grants access.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions. Get refreshes the TTL. Implementations must be
// safe for concurrent use.
type Store interface {
	Create(ctx context.Context, phone string) (Session, error)
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
	Ping(ctx context.Context) error
	Close() error
}

func newSession(phone string, now time.Time) Session {
	return Session{ID: uuid.NewString(), Token: uuid.NewString(), Phone: phone, CreatedAt: now.UTC()}
}
