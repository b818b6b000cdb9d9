package ai

import (
	"context"

	"ai-chat-backend/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ResponseGenerator = (*limitedGenerator)(nil)

type limitedGenerator struct {
	inner adapter.ResponseGenerator
	sem   chan struct{}
}

// NewLimited caps the number of concurrent calls into the wrapped generator.
func NewLimited(inner adapter.ResponseGenerator, maxConcurrent int) adapter.ResponseGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedGenerator{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedGenerator) Name() string { return l.inner.Name() }

func (l *limitedGenerator) Generate(ctx context.Context, messages []adapter.Message) (adapter.Reply, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return adapter.Reply{}, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, messages)
}

func (l *limitedGenerator) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	return l.inner.CountTokens(ctx, messages)
}
