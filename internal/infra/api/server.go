package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/usecase"
)

type ctxKey string

const ctxUserID ctxKey = "user_id"

// Server exposes the session and message REST surface plus the operational
// endpoints. The WebSocket handler is mounted by the caller so both surfaces
// share one listener.
type Server struct {
	router   chi.Router
	verifier adapter.IdentityVerifier
	sessions usecase.SessionUseCase
	pipeline usecase.MessagePipeline
	log      *zerolog.Logger
}

func NewServer(
	verifier adapter.IdentityVerifier,
	sessions usecase.SessionUseCase,
	pipeline usecase.MessagePipeline,
	wsHandler http.Handler,
	log *zerolog.Logger,
) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		verifier: verifier,
		sessions: sessions,
		pipeline: pipeline,
		log:      log,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
	if wsHandler != nil {
		s.router.Handle("/ws", wsHandler)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/messages", s.handleListMessages)
				r.Post("/messages", s.handleSendMessage)
			})
		})
	})
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// authenticate requires a bearer token and stores the resolved user id in
// the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimPrefix(h, "Bearer ")
		userID, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrSessionInactive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
