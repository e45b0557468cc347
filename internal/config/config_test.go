package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %s", cfg.OpenAIModel)
	}
	if cfg.WebhookPath != "/webhook/evolution" {
		t.Errorf("unexpected webhook path %s", cfg.WebhookPath)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.WorkerCount)
	}
	if cfg.TypingDelay != time.Second {
		t.Errorf("expected 1s typing delay, got %s", cfg.TypingDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("EVOLUTION_API_URL", "evolution.internal:8080")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.WorkerCount)
	}
	if cfg.LLMTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.LLMTimeout)
	}
	if cfg.EvolutionAPIURL != "evolution.internal:8080" {
		t.Errorf("unexpected evolution url %s", cfg.EvolutionAPIURL)
	}
}

func TestLoadSplitsCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://painel.seguroja.com.br, https://admin.seguroja.com.br")

	cfg := Load()

	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSAllowedOrigins[1] != "https://admin.seguroja.com.br" {
		t.Errorf("unexpected origin %s", cfg.CORSAllowedOrigins[1])
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("WORKER_COUNT", "lots")
	t.Setenv("NOTIFY_MAX_RETRIES", "")

	cfg := Load()

	if cfg.WorkerCount != 2 {
		t.Errorf("expected fallback worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.NotifyMaxRetries != 3 {
		t.Errorf("expected fallback retries 3, got %d", cfg.NotifyMaxRetries)
	}
}
