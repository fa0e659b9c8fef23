package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Limits.ParseCacheSize != 50 {
		t.Errorf("parse cache size default = %d, want 50", cfg.Limits.ParseCacheSize)
	}
	if cfg.Knowledge.SuccessCap != 50 || cfg.Knowledge.AntiCap != 25 || cfg.Knowledge.DomainCap != 100 {
		t.Errorf("knowledge caps = %+v, want 50/25/100", cfg.Knowledge)
	}
	sum := cfg.Trigger.WeightInteractions + cfg.Trigger.WeightConfidence + cfg.Trigger.WeightErrors + cfg.Trigger.WeightStall
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("trigger weights sum = %f, want 1.0", sum)
	}
}

func TestLoadOverlaysYAMLOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gasctl.yaml")
	content := "server:\n  port: 9090\nknowledge:\n  success_cap: 10\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Knowledge.SuccessCap != 10 {
		t.Errorf("success cap = %d, want 10", cfg.Knowledge.SuccessCap)
	}
	// Untouched fields keep their defaults.
	if cfg.Limits.ParseCacheSize != 50 {
		t.Errorf("parse cache size = %d, want default 50", cfg.Limits.ParseCacheSize)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
	if cfg.Server.Port != DefaultConfig().Server.Port {
		t.Fatal("expected defaults when config file is absent")
	}
}
