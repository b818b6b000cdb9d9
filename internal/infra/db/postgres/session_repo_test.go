package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/infra/redis"
)

// cacheKV is an in-memory redis.KV; the nil pool below guarantees the lookup
// never reaches a database.
type cacheKV struct {
	values map[string]string
}

func newCacheKV() *cacheKV { return &cacheKV{values: make(map[string]string)} }

func (m *cacheKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("unexpected value type")
	}
	m.values[key] = string(b)
	return nil
}

func (m *cacheKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("redis: nil")
	}
	return v, nil
}

func (m *cacheKV) Expire(context.Context, string, time.Duration) error { return nil }
func (m *cacheKV) Del(context.Context, ...string) error               { return nil }

func TestSessionRepo_FindByIDServedFromCache(t *testing.T) {
	ctx := context.Background()
	cache := redis.NewSessionCache(newCacheKV(), time.Minute)

	s := model.NewSession("s1", "u1", "tides")
	s.Messages = []model.Message{model.NewMessage("s1", model.SenderUser, "hello", 0)}
	if err := cache.Store(ctx, s); err != nil {
		t.Fatalf("Store: %v", err)
	}

	repo := NewSessionRepo(nil, cache)
	got, err := repo.FindByID(ctx, nil, "s1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.ID != "s1" || got.Title != "tides" {
		t.Fatalf("got %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}
