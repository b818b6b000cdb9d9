// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-chat-backend/internal/config"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/infra/ai"
	"ai-chat-backend/internal/infra/api"
	"ai-chat-backend/internal/infra/auth"
	pg "ai-chat-backend/internal/infra/db/postgres"
	"ai-chat-backend/internal/infra/logging"
	"ai-chat-backend/internal/infra/metrics"
	red "ai-chat-backend/internal/infra/redis"
	"ai-chat-backend/internal/infra/worker"
	"ai-chat-backend/internal/infra/ws"
	"ai-chat-backend/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (echo generator fallback, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	sessionCache := red.NewSessionCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	sessionRepo := pg.NewSessionRepo(pool, sessionCache)

	// ---- Identity ----
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// ---- Generator (OpenAI -> Gemini -> echo in dev) ----
	var gen adapter.ResponseGenerator
	switch {
	case cfg.AI.OpenAIKey != "":
		gen, err = ai.NewOpenAIGenerator(cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.MaxOutputTokens)
		if err != nil {
			log.Fatalf("openai generator: %v", err)
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("generator: OpenAI")
	case cfg.AI.GeminiKey != "":
		gen, err = ai.NewGeminiGenerator(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model, cfg.AI.MaxOutputTokens)
		if err != nil {
			log.Fatalf("gemini generator: %v", err)
		}
		logger.Info().Str("model", cfg.AI.Model).Str("base", cfg.AI.GeminiURL).Msg("generator: Gemini")
	case cfg.Runtime.Dev:
		gen = ai.NewEchoGenerator(300 * time.Millisecond)
		logger.Warn().Msg("generator: echo (dev only, no provider key configured)")
	default:
		log.Fatalf("no AI provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}
	gen = ai.NewLimited(gen, cfg.AI.ConcurrentLimit)

	// ---- Use cases ----
	sessionUC := usecase.NewSessionUseCase(sessionRepo, logger)

	// ---- Delivery + pipeline ----
	registry := ws.NewRegistry(logger)
	txManager := pg.NewTxManager(pool)
	pipeline := usecase.NewMessagePipeline(
		sessionRepo, txManager, gen, cfg.AI.Model, registry,
		cfg.AI.HistoryWindow, cfg.AI.Timeout, logger,
	)

	// ---- Workers ----
	pool2 := worker.NewPool(cfg.Workers.Count, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- HTTP: REST + WebSocket on one listener ----
	wsServer := ws.NewServer(
		registry, verifier, sessionUC, pipeline, pool2, rateLimiter,
		cfg.Limits.FramesPerMinute, cfg.Server.AllowedOrigins, logger,
	)
	apiServer := api.NewServer(verifier, sessionUC, pipeline, wsServer, logger)

	server := &http.Server{Addr: cfg.Server.Addr, Handler: apiServer.Handler()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
