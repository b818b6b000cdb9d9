package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/infra/redis"
	"ai-chat-backend/internal/infra/worker"
	"ai-chat-backend/internal/usecase"
)

// Server upgrades authenticated HTTP requests to WebSocket connections and
// binds them to the user's current session.
type Server struct {
	registry *Registry
	verifier adapter.IdentityVerifier
	sessions usecase.SessionUseCase
	pipeline usecase.MessagePipeline
	pool     *worker.Pool
	limiter  *redis.RateLimiter

	frameLimit int
	upgrader   websocket.Upgrader
	log        *zerolog.Logger
}

func NewServer(
	registry *Registry,
	verifier adapter.IdentityVerifier,
	sessions usecase.SessionUseCase,
	pipeline usecase.MessagePipeline,
	pool *worker.Pool,
	limiter *redis.RateLimiter,
	frameLimit int,
	allowedOrigins []string,
	log *zerolog.Logger,
) *Server {
	return &Server{
		registry: registry,
		verifier: verifier,
		sessions: sessions,
		pipeline: pipeline,
		pool:     pool,
		limiter:  limiter,

		frameLimit: frameLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeHTTP handles GET /ws. The token comes from the "token" query
// parameter or a bearer Authorization header. The connection is upgraded
// before verification so auth failures surface as a proper close frame
// instead of a bare HTTP error the browser cannot read.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	userID, err := s.verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	c := newClient(userID, conn, s)
	s.registry.Register(userID, c)

	sess, err := s.sessions.ResolveCurrent(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("resolve current session failed")
		c.enqueue(model.NewErrorEvent("could not resolve session"))
	} else {
		c.setSession(sess.ID)
		c.enqueue(model.NewSessionCreatedEvent(sess))
	}

	// The read pump outlives r.Context(); it runs until the peer goes away.
	go c.writePump()
	go c.readPump(context.WithoutCancel(r.Context()))
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return h
}
