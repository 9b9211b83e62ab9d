package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7467" {
		t.Errorf("listen addr = %s", cfg.ListenAddr)
	}
	if cfg.DBPath == "" {
		t.Error("db path should default to the home directory")
	}
}

func TestLoad_OverlaysFileOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crewplan.yaml")
	content := `
listen_addr: "0.0.0.0:9000"
engine:
  base_weekly_hours: 32
  cache_ttl_seconds: 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("listen addr = %s", cfg.ListenAddr)
	}
	// Fields the file omits keep their defaults
	if cfg.DBPath == "" {
		t.Error("db path should keep its default")
	}
	if cfg.Engine.BaseWeeklyHours != 32 || cfg.Engine.CacheTTLSeconds != 60 {
		t.Errorf("engine overrides = %+v", cfg.Engine)
	}
}

func TestLoad_MissingFileErrorsButKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if cfg.ListenAddr != "127.0.0.1:7467" {
		t.Errorf("listen addr = %s, want default", cfg.ListenAddr)
	}
}
