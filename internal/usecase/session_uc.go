package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

// SessionUseCase resolves which session is "current" for a user and owns the
// two-state session lifecycle (active -> inactive, one-way).
type SessionUseCase interface {
	// ResolveCurrent returns the most recently updated active session of
	// the user, creating a fresh untitled one if none is active.
	ResolveCurrent(ctx context.Context, userID string) (*model.Session, error)
	Create(ctx context.Context, userID, title string) (*model.Session, error)
	List(ctx context.Context, userID string) ([]*model.Session, error)
	History(ctx context.Context, userID, sessionID string) (*model.Session, error)
	// Delete deactivates an owned session. Deleting an already-inactive
	// session succeeds (idempotent) and leaves history untouched.
	Delete(ctx context.Context, userID, sessionID string) error
}

type sessionUC struct {
	sessions repository.SessionRepository
	log      *zerolog.Logger
}

func NewSessionUseCase(sessions repository.SessionRepository, log *zerolog.Logger) *sessionUC {
	return &sessionUC{sessions: sessions, log: log}
}

func (u *sessionUC) ResolveCurrent(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	s, err := u.sessions.FindCurrent(ctx, nil, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return u.Create(ctx, userID, "")
}

func (u *sessionUC) Create(ctx context.Context, userID, title string) (*model.Session, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	s := model.NewSession(uuid.NewString(), userID, title)
	if err := u.sessions.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	u.log.Debug().Str("session_id", s.ID).Str("user_id", userID).Msg("session created")
	return s, nil
}

func (u *sessionUC) List(ctx context.Context, userID string) ([]*model.Session, error) {
	return u.sessions.ListByUser(ctx, nil, userID)
}

func (u *sessionUC) History(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	s, err := u.sessions.FindOwned(ctx, nil, sessionID, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := u.sessions.Messages(ctx, nil, s.ID)
	if err != nil {
		return nil, err
	}
	s.Messages = msgs
	return s, nil
}

func (u *sessionUC) Delete(ctx context.Context, userID, sessionID string) error {
	s, err := u.sessions.FindOwned(ctx, nil, sessionID, userID)
	if err != nil {
		return err
	}
	if !s.IsActive {
		return nil
	}
	if err := u.sessions.Deactivate(ctx, nil, s.ID); err != nil {
		return err
	}
	u.log.Debug().Str("session_id", s.ID).Str("user_id", userID).Msg("session deactivated")
	return nil
}
