package main

import (
	"context"
	"flag"
	"log"

	"ai-chat-backend/internal/config"
	"ai-chat-backend/internal/infra/auth"
	"ai-chat-backend/internal/infra/db/postgres"
	"ai-chat-backend/internal/infra/redis"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_active
	ON sessions (user_id, updated_at DESC) WHERE is_active;

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	sender      TEXT NOT NULL,
	content     TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session_id
	ON messages (session_id, id);
`

// Prepares a clean environment for manual end-to-end testing: applies the
// schema, optionally wipes existing state, and mints a dev bearer token.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	wipe := flag.Bool("wipe", false, "truncate tables and flush the redis cache")
	seedUser := flag.String("seed-user", "", "mint and print a bearer token for this user id")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("[1/3] Applying schema...")
	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	if *wipe {
		log.Println("[2/3] Wiping existing data...")
		if _, err := pool.Exec(ctx, `TRUNCATE sessions, messages CASCADE;`); err != nil {
			log.Fatalf("failed to truncate tables: %v", err)
		}
		if err := redisClient.FlushDB(ctx); err != nil {
			log.Fatalf("failed to flush redis: %v", err)
		}
	} else {
		log.Println("[2/3] Keeping existing data (use -wipe to reset)")
	}

	if *seedUser != "" {
		log.Println("[3/3] Minting dev token...")
		verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		token, err := verifier.Mint(*seedUser)
		if err != nil {
			log.Fatalf("failed to mint token: %v", err)
		}
		log.Printf("bearer token for %s:\n%s", *seedUser, token)
	} else {
		log.Println("[3/3] No seed user requested")
	}

	log.Println("--- Setup complete ---")
}
