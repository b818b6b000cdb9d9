package model

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one turn within a session. Messages are append-only: after
// creation only the token usage is attached, once generation completes.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Sender     Sender    `json:"sender"`
	Content    string    `json:"content"`
	TokensUsed int       `json:"tokens_used,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessage mints a message with a ULID id so that ids sort in creation order.
func NewMessage(sessionID string, sender Sender, content string, tokens int) Message {
	return Message{
		ID:         ulid.Make().String(),
		SessionID:  sessionID,
		Sender:     sender,
		Content:    content,
		TokensUsed: tokens,
		CreatedAt:  time.Now(),
	}
}

// Session is the aggregate root for one conversation thread owned by a user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages,omitempty"`
}

func NewSession(id, userID, title string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]Message, 0, 8),
	}
}

func (s *Session) Touch() { s.UpdatedAt = time.Now() }

// Deactivate marks the session inactive. Deactivation is one-way and
// idempotent; it reports whether the state actually changed.
func (s *Session) Deactivate() bool {
	if !s.IsActive {
		return false
	}
	s.IsActive = false
	s.Touch()
	return true
}

func (s *Session) AddMessage(m Message) {
	s.Messages = append(s.Messages, m)
	s.Touch()
}

// RecentMessages returns the last n messages in chronological order.
func (s *Session) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// TitleFromContent derives a session title from the first user message.
func TitleFromContent(content string, max int) string {
	t := strings.Join(strings.Fields(content), " ")
	if r := []rune(t); len(r) > max {
		t = strings.TrimSpace(string(r[:max]))
	}
	return t
}
