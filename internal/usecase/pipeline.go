package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/domain/ports/repository"
	"ai-chat-backend/internal/infra/logging"
	"ai-chat-backend/internal/infra/metrics"
)

// Compile-time check
var _ MessagePipeline = (*pipeline)(nil)

// MessagePipeline drives one inbound user message through
// persist -> composing signal -> generate -> persist -> deliver.
//
// Accept and Respond are split so a streaming transport can persist the user
// turn synchronously on its read loop (preserving submission order within a
// session) and run the generation half on a worker. Submit chains both for
// the synchronous request/response surface.
type MessagePipeline interface {
	// Accept validates the target session, persists the user message and
	// fires the composing signal. The session lock guarantees that
	// persistence for message N+1 starts only after message N's
	// persistence completed.
	Accept(ctx context.Context, userID, sessionID, content string) (*model.Message, error)

	// Respond assembles the bounded context window, invokes the generator
	// under its timeout, persists the assistant message and delivers it.
	// Failures degrade to an error event on the user's connection; the
	// user message stays persisted either way.
	Respond(ctx context.Context, userID, sessionID string) (*model.Message, error)

	// Submit runs Accept and Respond back to back.
	Submit(ctx context.Context, userID, sessionID, content string) (*model.Message, error)
}

type pipeline struct {
	sessions repository.SessionRepository
	txm      repository.TransactionManager
	gen      adapter.ResponseGenerator
	model    string
	out      adapter.EventDeliverer
	locks    *sessionLocks
	window   int
	timeout  time.Duration
	titleMax int
	log      *zerolog.Logger
}

func NewMessagePipeline(
	sessions repository.SessionRepository,
	txm repository.TransactionManager,
	gen adapter.ResponseGenerator,
	modelName string,
	out adapter.EventDeliverer,
	window int,
	timeout time.Duration,
	log *zerolog.Logger,
) *pipeline {
	if window <= 0 {
		window = 20
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &pipeline{
		sessions: sessions,
		txm:      txm,
		gen:      gen,
		model:    modelName,
		out:      out,
		locks:    newSessionLocks(),
		window:   window,
		timeout:  timeout,
		titleMax: 48,
		log:      log,
	}
}

func (p *pipeline) Accept(ctx context.Context, userID, sessionID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrInvalidArgument
	}

	s, err := p.sessions.FindOwned(ctx, nil, sessionID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !s.IsActive {
		return nil, domain.ErrSessionInactive
	}

	release := p.locks.Acquire(sessionID)
	defer release()

	msg := model.NewMessage(sessionID, model.SenderUser, content, 0)
	persist := func(ctx context.Context, qx any) error {
		if err := p.sessions.SaveMessage(ctx, qx, &msg); err != nil {
			return err
		}
		if s.Title == "" {
			// First user turn names the session.
			return p.sessions.SetTitle(ctx, qx, sessionID, model.TitleFromContent(content, p.titleMax))
		}
		return nil
	}
	var err2 error
	if p.txm != nil {
		err2 = p.txm.WithTx(ctx, pgx.TxOptions{}, func(txCtx context.Context, tx repository.Tx) error {
			return persist(txCtx, tx)
		})
	} else {
		err2 = persist(ctx, nil)
	}
	if err2 != nil {
		if errors.Is(err2, domain.ErrNotFound) || errors.Is(err2, domain.ErrSessionInactive) {
			return nil, err2
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err2)
	}

	// Composing signal is fire-and-forget; the registry never blocks us.
	p.out.Deliver(userID, model.NewBotTypingEvent())
	return &msg, nil
}

func (p *pipeline) Respond(ctx context.Context, userID, sessionID string) (*model.Message, error) {
	l := logging.With(ctx, p.log)
	defer logging.TraceDuration(l, "Pipeline.Respond")()

	history, err := p.sessions.RecentMessages(ctx, nil, sessionID, p.window)
	if err != nil {
		p.out.Deliver(userID, model.NewErrorEvent("could not load conversation history"))
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	reply, err := p.generate(ctx, history)
	if err != nil {
		l.Warn().Err(err).Str("session_id", sessionID).Msg("generation failed")
		p.out.Deliver(userID, model.NewErrorEvent("generation failed, please resend your message"))
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	msg := model.NewMessage(sessionID, model.SenderAssistant, reply.Content, reply.TokensUsed)
	if err := p.sessions.SaveMessage(ctx, nil, &msg); err != nil {
		if errors.Is(err, domain.ErrSessionInactive) || errors.Is(err, domain.ErrNotFound) {
			// The user deleted the session mid-generation; the reply is
			// dropped so a deactivated session never grows history.
			l.Debug().Str("session_id", sessionID).Msg("session gone, discarding reply")
			return nil, domain.ErrSessionInactive
		}
		p.out.Deliver(userID, model.NewErrorEvent("could not save the reply, please resend your message"))
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	p.out.Deliver(userID, model.NewBotResponseEvent(msg))
	return &msg, nil
}

func (p *pipeline) Submit(ctx context.Context, userID, sessionID, content string) (*model.Message, error) {
	if _, err := p.Accept(ctx, userID, sessionID, content); err != nil {
		return nil, err
	}
	return p.Respond(ctx, userID, sessionID)
}

// generate runs the generator under the configured bound, detached from the
// caller's cancellation: a disconnect must not cancel a generation already
// accepted, its result is persisted and delivery is simply dropped when no
// channel remains registered.
func (p *pipeline) generate(ctx context.Context, history []model.Message) (adapter.Reply, error) {
	msgs := make([]adapter.Message, 0, len(history))
	for _, m := range history {
		role := adapter.RoleUser
		if m.Sender == model.SenderAssistant {
			role = adapter.RoleAssistant
		}
		msgs = append(msgs, adapter.Message{Role: role, Content: m.Content})
	}

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	start := time.Now()
	reply, err := p.gen.Generate(genCtx, msgs)
	latency := int(time.Since(start) / time.Millisecond)
	metrics.ObserveGeneration(p.gen.Name(), p.model, reply.TokensUsed, latency, err == nil)
	return reply, err
}
