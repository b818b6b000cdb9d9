package redis

import (
	"context"
	"encoding/json"
	"time"

	"ai-chat-backend/internal/domain/model"
)

// Compile-time check
var _ KV = (*Client)(nil)

// KV is the key/value surface the session cache needs from Client.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// SessionCache keeps a best-effort copy of session state. The Postgres
// repository remains the writer of record; the cache only shortens reads.
type SessionCache struct {
	client KV
	ttl    time.Duration
}

func NewSessionCache(client KV, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

func (c *SessionCache) Store(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "session:"+session.ID, data, c.ttl)
}

func (c *SessionCache) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	data, err := c.client.Get(ctx, "session:"+sessionID)
	if err != nil {
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, "session:"+sessionID)
}

func (c *SessionCache) Extend(ctx context.Context, sessionID string) error {
	return c.client.Expire(ctx, "session:"+sessionID, c.ttl)
}
