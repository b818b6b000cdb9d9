package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-chat-backend/internal/domain/ports/adapter"
)

var _ adapter.ResponseGenerator = (*EchoGenerator)(nil)

// EchoGenerator is the dev-mode generator: a deterministic echo bot so the
// full pipeline can be exercised without an API key.
type EchoGenerator struct {
	delay time.Duration
}

func NewEchoGenerator(delay time.Duration) *EchoGenerator {
	return &EchoGenerator{delay: delay}
}

func (e *EchoGenerator) Name() string { return "echo" }

func (e *EchoGenerator) Generate(ctx context.Context, messages []adapter.Message) (adapter.Reply, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return adapter.Reply{}, ctx.Err()
		}
	}
	last := "hello"
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == adapter.RoleUser {
			last = messages[i].Content
			break
		}
	}
	content := fmt.Sprintf("You said: %q. Anything else?", last)
	return adapter.Reply{
		Content:    content,
		TokensUsed: len(strings.Fields(content)),
	}, nil
}

func (e *EchoGenerator) CountTokens(_ context.Context, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content))
	}
	return n, nil
}
