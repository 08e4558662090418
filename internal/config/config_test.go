package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsRequireDSNAndKey(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(openAIKeyEnv, "")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error without dsn and api key")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
redis:
  addr: redis.internal:6380
  queueKey: submissions
database:
  dsn: postgres://worker:pw@db:5432/deals
llm:
  apiKey: file-key
  model: gpt-4o
  timeout: 90s
worker:
  pollInterval: 500ms
  submissionMarkerTTL: 12h
`)
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(openAIKeyEnv, "")
	t.Setenv(redisAddrEnv, "")
	t.Setenv(openAIModelEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Fatalf("redis addr not read from file: %s", cfg.Redis.Addr)
	}
	if cfg.Redis.QueueKey != "submissions" {
		t.Fatalf("queue key not read from file: %s", cfg.Redis.QueueKey)
	}
	if cfg.LLM.Timeout.Std() != 90*time.Second {
		t.Fatalf("llm timeout = %s", cfg.LLM.Timeout.Std())
	}
	if cfg.Worker.PollInterval.Std() != 500*time.Millisecond {
		t.Fatalf("poll interval = %s", cfg.Worker.PollInterval.Std())
	}
	if cfg.Worker.SubmissionMarkerTTL.Std() != 12*time.Hour {
		t.Fatalf("submission marker ttl = %s", cfg.Worker.SubmissionMarkerTTL.Std())
	}
	// Untouched knobs keep their defaults.
	if cfg.Worker.MessageMarkerTTL.Std() != time.Hour {
		t.Fatalf("message marker ttl default lost: %s", cfg.Worker.MessageMarkerTTL.Std())
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfigFile(t, `
database:
  dsn: postgres://file@db/deals
llm:
  apiKey: file-key
`)
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env@db/deals")
	t.Setenv(openAIKeyEnv, "env-key")
	t.Setenv(redisAddrEnv, "")
	t.Setenv(openAIModelEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database.DSN != "postgres://env@db/deals" {
		t.Fatalf("env dsn should win, got %s", cfg.Database.DSN)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("env api key should win, got %s", cfg.LLM.APIKey)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	path := writeConfigFile(t, `
worker:
  pollInterval: soon
`)
	t.Setenv(configPathEnv, path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected parse error for bad duration")
	}
	if !strings.Contains(err.Error(), "parse duration") {
		t.Fatalf("unexpected error: %v", err)
	}
}
