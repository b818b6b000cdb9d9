package repository

import (
	"context"

	"ai-chat-backend/internal/domain/model"
)

// -----------------------------
// Sessions and messages
// -----------------------------

// SessionRepository is the durable store of record for sessions and their
// messages. Message order is append-only; callers never mutate history.
type SessionRepository interface {
	Save(ctx context.Context, qx any, session *model.Session) error
	SaveMessage(ctx context.Context, qx any, message *model.Message) error
	SetTitle(ctx context.Context, qx any, sessionID, title string) error
	// Deactivate marks a session inactive. It succeeds even when the
	// session is already inactive (soft lifecycle, one-way).
	Deactivate(ctx context.Context, qx any, sessionID string) error

	// FindByID loads a session with its full message history.
	FindByID(ctx context.Context, qx any, id string) (*model.Session, error)
	// FindOwned returns the session row without history, restricted to
	// sessions owned by userID; foreign sessions surface as
	// domain.ErrNotFound. It is the cheap per-message ownership check.
	FindOwned(ctx context.Context, qx any, id, userID string) (*model.Session, error)
	// FindCurrent returns the most recently updated active session of a
	// user, or domain.ErrNotFound when none is active.
	FindCurrent(ctx context.Context, qx any, userID string) (*model.Session, error)
	ListByUser(ctx context.Context, qx any, userID string) ([]*model.Session, error)

	// Messages returns a session's full history in chronological order.
	Messages(ctx context.Context, qx any, sessionID string) ([]model.Message, error)
	// RecentMessages returns the last limit messages of a session in
	// chronological order.
	RecentMessages(ctx context.Context, qx any, sessionID string, limit int) ([]model.Message, error)
}
