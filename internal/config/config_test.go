package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
discord_token: file-token
storage:
  driver: JSON
  json_path: /tmp/levels.json
leveling:
  curve_base: 50
  curve_growth: 2
  link_multiplier: 0
  level_roles:
    5: "role-five"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("XP_COOLDOWN_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscordToken != "file-token" {
		t.Fatalf("unexpected token %q", cfg.DiscordToken)
	}
	if cfg.Storage.Driver != "json" {
		t.Fatalf("expected json driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Leveling.CurveBase != 50 || cfg.Leveling.CurveGrowth != 2 {
		t.Fatalf("unexpected curve %d/%f", cfg.Leveling.CurveBase, cfg.Leveling.CurveGrowth)
	}
	if cfg.Leveling.CooldownSeconds != 30 {
		t.Fatalf("expected env cooldown 30, got %d", cfg.Leveling.CooldownSeconds)
	}
	if cfg.Leveling.LinkMultiplier != 1 {
		t.Fatalf("expected zero multiplier to default to 1, got %f", cfg.Leveling.LinkMultiplier)
	}
	if cfg.Leveling.LevelRoles[5] != "role-five" {
		t.Fatalf("expected level role, got %v", cfg.Leveling.LevelRoles)
	}
}

func TestLevelingValidate(t *testing.T) {
	cases := map[string]func(*LevelingConfig){
		"base":     func(c *LevelingConfig) { c.CurveBase = 0 },
		"growth":   func(c *LevelingConfig) { c.CurveGrowth = 1 },
		"variance": func(c *LevelingConfig) { c.XPVariance = -1 },
		"role":     func(c *LevelingConfig) { c.LevelRoles = map[int]string{0: "r"} },
		"ratio":    func(c *LevelingConfig) { c.CurveBase, c.CurveGrowth = 1, 1.5 },
		"cleanup":  func(c *LevelingConfig) { c.CleanupIntervalSeconds = 0 },
		"overflow": func(c *LevelingConfig) { c.LevelRoles = map[int]string{400: "r"} },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig().Leveling
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLevelRolesCappedAtReachableLevel(t *testing.T) {
	cfg := DefaultConfig().Leveling
	top := cfg.Curve().EffectiveMaxLevel()
	if top >= cfg.MaxLevel {
		t.Fatalf("expected the default curve to stop below max_level %d, got %d", cfg.MaxLevel, top)
	}

	cfg.LevelRoles = map[int]string{top: "last"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("level %d should be accepted: %v", top, err)
	}
	cfg.LevelRoles = map[int]string{top + 1: "unreachable"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("level %d should be rejected", top+1)
	}
}

func TestConfigValidateMaintenanceInterval(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	cfg.MaintenanceInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero maintenance interval")
	}
}

func TestStorageValidate(t *testing.T) {
	if err := (StorageConfig{Driver: "mysql"}).Validate(); err == nil {
		t.Fatalf("expected mysql dsn error")
	}
	if err := (StorageConfig{Driver: "sqlite"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
