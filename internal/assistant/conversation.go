package assistant

import (
	"context"
	"log/slog"

	"github.com/54b3r/orangebot-go/internal/customer"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/store"
)

// DefaultHistoryTurns is how many stored turns are loaded per question.
const DefaultHistoryTurns = 6

// Responder answers one question. *Generator implements it.
type Responder interface {
	Respond(ctx context.Context, question string, history []Exchange, profile *customer.Profile) Reply
}

// Conversation binds a Responder to per-session history.
type Conversation struct {
	responder Responder
	history   store.ConversationStore
	turns     int
	log       *slog.Logger
}

// NewConversation returns a Conversation that loads the last turns stored
// messages before each question. turns <= 0 uses DefaultHistoryTurns.
func NewConversation(r Responder, history store.ConversationStore, turns int, log *slog.Logger) *Conversation {
	if turns <= 0 {
		turns = DefaultHistoryTurns
	}
	if log == nil {
		log = slog.Default()
	}
	return &Conversation{responder: r, history: history, turns: turns, log: log}
}

// Ask answers question within session and records both sides of the
// exchange. History failures are logged and never fail the turn.
func (c *Conversation) Ask(ctx context.Context, session, question string, profile *customer.Profile) Reply {
	log := logging.FromContextOr(ctx, c.log)

	recent, err := c.history.Recent(ctx, session, c.turns)
	if err != nil {
		log.Warn("assistant: loading history failed", slog.String("error", err.Error()))
		recent = nil
	}

	reply := c.responder.Respond(ctx, question, Pair(recent), profile)

	// The turn is recorded even when ctx expired during Respond.
	ctx = context.WithoutCancel(ctx)
	if err := c.history.Append(ctx, session, store.RoleUser, question); err != nil {
		log.Warn("assistant: saving question failed", slog.String("error", err.Error()))
	}
	if err := c.history.Append(ctx, session, store.RoleAssistant, reply.Text); err != nil {
		log.Warn("assistant: saving reply failed", slog.String("error", err.Error()))
	}
	return reply
}

// History returns every stored turn of session, oldest first.
func (c *Conversation) History(ctx context.Context, session string) ([]store.Message, error) {
	return c.history.Recent(ctx, session, 0)
}

// Clear forgets session's turns.
func (c *Conversation) Clear(ctx context.Context, session string) error {
	return c.history.Clear(ctx, session)
}

// Pair groups stored turns into exchanges. A user turn opens an exchange; an
// assistant turn completes the open one, or stands alone when none is open.
func Pair(msgs []store.Message) []Exchange {
	var (
		out  []Exchange
		open = -1
	)
	for _, m := range msgs {
		switch m.Role {
		case store.RoleUser:
			out = append(out, Exchange{User: m.Content})
			open = len(out) - 1
		case store.RoleAssistant:
			if open >= 0 {
				out[open].Assistant = m.Content
				open = -1
				continue
			}
			out = append(out, Exchange{Assistant: m.Content})
		}
	}
	return out
}
