package usecase

import (
	"context"
	"sort"
	"sync"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/domain/ports/repository"
)

// Compile-time checks
var (
	_ repository.SessionRepository = (*memSessionRepo)(nil)
	_ adapter.ResponseGenerator    = (*fakeGenerator)(nil)
	_ adapter.EventDeliverer       = (*recordDeliverer)(nil)
)

// memSessionRepo is an in-memory SessionRepository for tests.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	messages map[string][]model.Message

	failSaveMessage error
	failFind        error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{
		sessions: make(map[string]*model.Session),
		messages: make(map[string][]model.Message),
	}
}

func (r *memSessionRepo) Save(_ context.Context, _ any, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) SaveMessage(_ context.Context, _ any, m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaveMessage != nil {
		return r.failSaveMessage
	}
	s, ok := r.sessions[m.SessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if !s.IsActive {
		return domain.ErrSessionInactive
	}
	r.messages[m.SessionID] = append(r.messages[m.SessionID], *m)
	s.Touch()
	return nil
}

func (r *memSessionRepo) SetTitle(_ context.Context, _ any, sessionID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Title = title
	return nil
}

func (r *memSessionRepo) Deactivate(_ context.Context, _ any, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Deactivate()
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, _ any, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	cp.Messages = append([]model.Message(nil), r.messages[id]...)
	return &cp, nil
}

func (r *memSessionRepo) FindOwned(_ context.Context, _ any, id, userID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind != nil {
		return nil, r.failFind
	}
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) FindCurrent(_ context.Context, _ any, userID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.Session
	for _, s := range r.sessions {
		if s.UserID != userID || !s.IsActive {
			continue
		}
		if best == nil || s.UpdatedAt.After(best.UpdatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *memSessionRepo) ListByUser(_ context.Context, _ any, userID string) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memSessionRepo) Messages(_ context.Context, _ any, sessionID string) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return nil, domain.ErrNotFound
	}
	return append([]model.Message(nil), r.messages[sessionID]...), nil
}

func (r *memSessionRepo) RecentMessages(_ context.Context, _ any, sessionID string, limit int) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return nil, domain.ErrNotFound
	}
	msgs := r.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]model.Message(nil), msgs...), nil
}

func (r *memSessionRepo) storedMessages(sessionID string) []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Message(nil), r.messages[sessionID]...)
}

// fakeGenerator replies with a fixed transform of the last user message, or
// fails when err is set.
type fakeGenerator struct {
	mu     sync.Mutex
	err    error
	calls  [][]adapter.Message
	tokens int
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, msgs []adapter.Message) (adapter.Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, append([]adapter.Message(nil), msgs...))
	if g.err != nil {
		return adapter.Reply{}, g.err
	}
	last := ""
	if len(msgs) > 0 {
		last = msgs[len(msgs)-1].Content
	}
	return adapter.Reply{Content: "re: " + last, TokensUsed: g.tokens}, nil
}

func (g *fakeGenerator) CountTokens(_ context.Context, msgs []adapter.Message) (int, error) {
	return len(msgs), nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// recordDeliverer collects every delivered event per user.
type recordDeliverer struct {
	mu     sync.Mutex
	events map[string][]model.Event
}

func newRecordDeliverer() *recordDeliverer {
	return &recordDeliverer{events: make(map[string][]model.Event)}
}

func (d *recordDeliverer) Deliver(userID string, ev model.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[userID] = append(d.events[userID], ev)
}

func (d *recordDeliverer) types(userID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.events[userID]))
	for _, ev := range d.events[userID] {
		out = append(out, ev.EventType())
	}
	return out
}
