package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"
	"ai-chat-backend/internal/infra/redis"
)

// SessionRepo is the durable session store. Sessions are soft-lifecycle:
// delete marks is_active=false and history stays queryable.
var _ repository.SessionRepository = (*SessionRepo)(nil)

type SessionRepo struct {
	pool  *pgxpool.Pool
	cache *redis.SessionCache
}

func NewSessionRepo(pool *pgxpool.Pool, cache *redis.SessionCache) *SessionRepo {
	return &SessionRepo{pool: pool, cache: cache}
}

func (r *SessionRepo) Save(ctx context.Context, qx any, session *model.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, title, is_active, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  is_active = EXCLUDED.is_active,
  updated_at = EXCLUDED.updated_at;`
	_, err := pick(r.pool, qx).Exec(ctx, q,
		session.ID, session.UserID, session.Title, session.IsActive, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save session: %w", err)
	}

	// Messages are appended separately via SaveMessage. Cache latest state.
	if r.cache != nil {
		_ = r.cache.Store(ctx, session)
	}
	return nil
}

func (r *SessionRepo) SaveMessage(ctx context.Context, qx any, m *model.Message) error {
	// The bump refuses deactivated sessions, so a delete racing an in-flight
	// generation cannot grow history afterwards.
	const q = `
WITH bump AS (
  UPDATE sessions SET updated_at = $6 WHERE id = $2 AND is_active RETURNING id
)
INSERT INTO messages (id, session_id, sender, content, tokens_used, created_at)
SELECT $1, id, $3, $4, $5, $6 FROM bump;`
	ex := pick(r.pool, qx)
	tag, err := ex.Exec(ctx, q,
		m.ID, m.SessionID, string(m.Sender), m.Content, m.TokensUsed, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var active bool
		if err := ex.QueryRow(ctx, `SELECT is_active FROM sessions WHERE id=$1;`, m.SessionID).Scan(&active); err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrNotFound
			}
			return fmt.Errorf("scan session: %w", err)
		}
		return domain.ErrSessionInactive
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, m.SessionID)
	}
	return nil
}

func (r *SessionRepo) SetTitle(ctx context.Context, qx any, sessionID, title string) error {
	const q = `UPDATE sessions SET title=$2, updated_at=NOW() WHERE id=$1;`
	tag, err := pick(r.pool, qx).Exec(ctx, q, sessionID, title)
	if err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, sessionID)
	}
	return nil
}

// Deactivate is idempotent: deactivating an already-inactive session is a no-op
// that still succeeds, and message history is left untouched.
func (r *SessionRepo) Deactivate(ctx context.Context, qx any, sessionID string) error {
	const q = `UPDATE sessions SET is_active=false, updated_at=NOW() WHERE id=$1;`
	tag, err := pick(r.pool, qx).Exec(ctx, q, sessionID)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if r.cache != nil {
		_ = r.cache.Delete(ctx, sessionID)
	}
	return nil
}

func (r *SessionRepo) FindByID(ctx context.Context, qx any, id string) (*model.Session, error) {
	// Cache is consulted only outside transactions; a tx must read its own
	// writes. Every mutation invalidates, so a hit is current.
	if qx == nil && r.cache != nil {
		if s, err := r.cache.Get(ctx, id); err == nil {
			_ = r.cache.Extend(ctx, id)
			return s, nil
		}
	}

	const qs = `SELECT id, user_id, COALESCE(title,''), is_active, created_at, updated_at FROM sessions WHERE id=$1;`
	ex := pick(r.pool, qx)
	var s model.Session
	if err := ex.QueryRow(ctx, qs, id).Scan(&s.ID, &s.UserID, &s.Title, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	msgs, err := r.Messages(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	s.Messages = msgs

	if r.cache != nil {
		_ = r.cache.Store(ctx, &s)
	}
	return &s, nil
}

// FindOwned reads the session row alone; message history stays in place for
// callers that need only ownership and lifecycle state.
func (r *SessionRepo) FindOwned(ctx context.Context, qx any, id, userID string) (*model.Session, error) {
	const q = `SELECT id, user_id, COALESCE(title,''), is_active, created_at, updated_at FROM sessions WHERE id=$1;`
	var s model.Session
	if err := pick(r.pool, qx).QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.Title, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if s.UserID != userID {
		// Ownership failures are indistinguishable from absence.
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *SessionRepo) FindCurrent(ctx context.Context, qx any, userID string) (*model.Session, error) {
	const q = `SELECT id FROM sessions WHERE user_id=$1 AND is_active ORDER BY updated_at DESC LIMIT 1;`
	var id string
	if err := pick(r.pool, qx).QueryRow(ctx, q, userID).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, qx, id)
}

func (r *SessionRepo) ListByUser(ctx context.Context, qx any, userID string) ([]*model.Session, error) {
	const q = `SELECT id, user_id, COALESCE(title,''), is_active, created_at, updated_at
FROM sessions WHERE user_id=$1 AND is_active ORDER BY updated_at DESC;`
	rows, err := pick(r.pool, qx).Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *SessionRepo) RecentMessages(ctx context.Context, qx any, sessionID string, limit int) ([]model.Message, error) {
	// Newest `limit` rows, returned in chronological order.
	const q = `SELECT id, session_id, sender, content, tokens_used, created_at FROM (
  SELECT id, session_id, sender, content, tokens_used, created_at
    FROM messages WHERE session_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2
) t ORDER BY created_at ASC, id ASC;`
	rows, err := pick(r.pool, qx).Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Messages returns a session's full history in chronological order.
func (r *SessionRepo) Messages(ctx context.Context, qx any, sessionID string) ([]model.Message, error) {
	const q = `SELECT id, session_id, sender, content, tokens_used, created_at
FROM messages WHERE session_id=$1 ORDER BY created_at ASC, id ASC;`
	rows, err := pick(r.pool, qx).Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]model.Message, error) {
	var out []model.Message
	for rows.Next() {
		var m model.Message
		var sender string
		if err := rows.Scan(&m.ID, &m.SessionID, &sender, &m.Content, &m.TokensUsed, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Sender = model.Sender(sender)
		out = append(out, m)
	}
	return out, rows.Err()
}
