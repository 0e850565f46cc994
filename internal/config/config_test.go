package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "ORDER_STORE", "UNDO_WINDOW_SECONDS", "POLL_INTERVAL_SECONDS", "CORS_ORIGINS", "ORDER_NUMBER_PREFIX"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.OrderStore != "postgres" {
		t.Fatalf("expected postgres store, got %s", cfg.OrderStore)
	}
	if cfg.UndoWindow != 8*time.Second || cfg.PollInterval != 8*time.Second {
		t.Fatalf("unexpected console timings undo=%s poll=%s", cfg.UndoWindow, cfg.PollInterval)
	}
	if cfg.OrderNumberPrefix != "M-" {
		t.Fatalf("expected M- prefix, got %s", cfg.OrderNumberPrefix)
	}
	if len(cfg.CORSOrigins) == 0 {
		t.Fatalf("expected default cors origins")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ORDER_STORE", "Mongo")
	t.Setenv("UNDO_WINDOW_SECONDS", "3")
	t.Setenv("CHANNEL_POOL_SIZE", "not-a-number")
	t.Setenv("CORS_ORIGINS", " https://admin.example.com , ,https://app.example.com")

	cfg := FromEnv()
	if cfg.OrderStore != "mongo" {
		t.Fatalf("expected mongo, got %s", cfg.OrderStore)
	}
	if cfg.UndoWindow != 3*time.Second {
		t.Fatalf("expected 3s undo window, got %s", cfg.UndoWindow)
	}
	if cfg.ChannelPoolSize != 10 {
		t.Fatalf("expected fallback pool size 10, got %d", cfg.ChannelPoolSize)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://app.example.com" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}
