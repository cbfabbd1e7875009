package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/floorboard?sslmode=disable")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.SeedDemoFloor {
		t.Fatal("SeedDemoFloor should default to false")
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadEngineDefaults(t *testing.T) {
	cfg, err := LoadEngine()
	if err != nil {
		t.Fatalf("LoadEngine() error = %v", err)
	}
	if cfg.TurnTimeMinutes != 120 {
		t.Fatalf("TurnTimeMinutes = %d, want 120", cfg.TurnTimeMinutes)
	}
	if cfg.WarnThreshold != 0.8 {
		t.Fatalf("WarnThreshold = %v, want 0.8", cfg.WarnThreshold)
	}
	if cfg.ReconnectCap().Seconds() != 30 {
		t.Fatalf("ReconnectCap = %v, want 30s", cfg.ReconnectCap())
	}
}

func TestLoadEngineParseTypes(t *testing.T) {
	t.Setenv("FLOOR_WARN_THRESHOLD", "0.75")
	t.Setenv("FLOOR_RECONNECT_BASE_MS", "250")
	t.Setenv("FLOOR_HEARTBEAT_WINDOW_SEC", "15")

	cfg, err := LoadEngine()
	if err != nil {
		t.Fatalf("LoadEngine() error = %v", err)
	}
	if cfg.WarnThreshold != 0.75 {
		t.Fatalf("WarnThreshold = %v, want 0.75", cfg.WarnThreshold)
	}
	if cfg.ReconnectBase().Milliseconds() != 250 {
		t.Fatalf("ReconnectBase = %v, want 250ms", cfg.ReconnectBase())
	}
	if cfg.HeartbeatWindow().Seconds() != 15 {
		t.Fatalf("HeartbeatWindow = %v, want 15s", cfg.HeartbeatWindow())
	}
}
