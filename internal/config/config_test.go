package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
auth:
  jwt_secret: "secret"
database:
  url: "postgres://localhost:5432/chat"
redis:
  url: "localhost:6379"
`

func TestLoadConfig(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, minimalConfig), false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Server.Addr != ":8080" {
			t.Errorf("Addr = %q", cfg.Server.Addr)
		}
		if cfg.AI.Model != "gpt-4o-mini" {
			t.Errorf("Model = %q", cfg.AI.Model)
		}
		if cfg.AI.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v", cfg.AI.Timeout)
		}
		if cfg.AI.HistoryWindow != 20 {
			t.Errorf("HistoryWindow = %d", cfg.AI.HistoryWindow)
		}
		if cfg.Limits.FramesPerMinute != 60 {
			t.Errorf("FramesPerMinute = %d", cfg.Limits.FramesPerMinute)
		}
		if cfg.Workers.Count != 8 {
			t.Errorf("Workers = %d", cfg.Workers.Count)
		}
	})

	t.Run("explicit values win", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
server:
  addr: ":9999"
ai:
  model: "gpt-4o"
  history_window: 5
  timeout: 10s
`), false)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Server.Addr != ":9999" || cfg.AI.Model != "gpt-4o" {
			t.Fatalf("cfg = %+v", cfg)
		}
		if cfg.AI.HistoryWindow != 5 || cfg.AI.Timeout != 10*time.Second {
			t.Fatalf("ai = %+v", cfg.AI)
		}
	})

	t.Run("dev flag carried into runtime", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, minimalConfig), true)
		if err != nil {
			t.Fatal(err)
		}
		if !cfg.Runtime.Dev {
			t.Fatal("Runtime.Dev not set")
		}
	})

	t.Run("missing required fields", func(t *testing.T) {
		cases := map[string]string{
			"jwt secret": `
database:
  url: "postgres://x"
redis:
  url: "y"
`,
			"database url": `
auth:
  jwt_secret: "s"
redis:
  url: "y"
`,
			"redis url": `
auth:
  jwt_secret: "s"
database:
  url: "postgres://x"
`,
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				if _, err := LoadConfig(writeConfig(t, content), false); err == nil {
					t.Fatal("expected validation error")
				}
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Fatal("expected error")
		}
	})
}
