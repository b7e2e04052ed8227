package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"guildkeeper/internal/leveling"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken        string         `yaml:"discord_token"`
	DatabasePath        string         `yaml:"database_path"`
	LogLevel            string         `yaml:"log_level"`
	DefaultLogChannel   string         `yaml:"default_log_channel"`
	DefaultLanguage     string         `yaml:"default_language"`
	RetentionDays       int            `yaml:"retention_days"`
	Health              HealthConfig   `yaml:"health"`
	Metrics             MetricsConfig  `yaml:"metrics"`
	Storage             StorageConfig  `yaml:"storage"`
	Leveling            LevelingConfig `yaml:"leveling"`
	Notifications       NotifyConfig   `yaml:"notifications"`
	MaintenanceInterval int            `yaml:"maintenance_interval_minutes"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	JSONPath    string `yaml:"json_path"`
	JSONFlushMs int    `yaml:"json_flush_ms"`
	MySQLDSN    string `yaml:"mysql_dsn"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LevelingConfig drives the XP curve, the award formula and the cooldown
// tracker. LevelRoles maps a level number to the role granted on reaching it.
type LevelingConfig struct {
	Enabled                bool           `yaml:"enabled"`
	CurveBase              int64          `yaml:"curve_base"`
	CurveGrowth            float64        `yaml:"curve_growth"`
	MaxLevel               int            `yaml:"max_level"`
	XPBase                 int64          `yaml:"xp_base"`
	XPVariance             int64          `yaml:"xp_variance"`
	LengthThreshold        int            `yaml:"length_threshold"`
	LengthMultiplier       float64        `yaml:"length_multiplier"`
	AttachmentMultiplier   float64        `yaml:"attachment_multiplier"`
	LinkMultiplier         float64        `yaml:"link_multiplier"`
	CooldownSeconds        int            `yaml:"cooldown_seconds"`
	CleanupIntervalSeconds int            `yaml:"cleanup_interval_seconds"`
	MaxCooldownEntries     int            `yaml:"max_cooldown_entries"`
	AnnounceChannelID      string         `yaml:"announce_channel_id"`
	LevelUpMessage         string         `yaml:"level_up_message"`
	LevelRoles             map[int]string `yaml:"level_roles"`
}

type NotifyConfig struct {
	AuditToChannel bool        `yaml:"audit_to_channel"`
	EmbedColors    EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:        "/data/guildkeeper.db",
		LogLevel:            "info",
		DefaultLanguage:     "en",
		RetentionDays:       30,
		MaintenanceInterval: 5,
		Health:              HealthConfig{Enabled: false, Addr: ":8080"},
		Metrics:             MetricsConfig{Enabled: true},
		Storage: StorageConfig{
			Driver:      "sqlite",
			JSONPath:    "/data/levels.json",
			JSONFlushMs: 2000,
		},
		Leveling: LevelingConfig{
			Enabled:                true,
			CurveBase:              100,
			CurveGrowth:            1.5,
			MaxLevel:               500,
			XPBase:                 15,
			XPVariance:             10,
			LengthThreshold:        100,
			LengthMultiplier:       1.5,
			AttachmentMultiplier:   1.2,
			LinkMultiplier:         1.1,
			CooldownSeconds:        60,
			CleanupIntervalSeconds: 300,
			MaxCooldownEntries:     10000,
			LevelUpMessage:         "{user} reached level {level}!",
			LevelRoles:             map[int]string{},
		},
		Notifications: NotifyConfig{
			AuditToChannel: false,
			EmbedColors: EmbedColors{
				Action:  0x22C55E,
				Warning: 0xF59E0B,
				Error:   0xEF4444,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	cfg.Storage.Driver = normalizeDriver(cfg.Storage.Driver)
	cfg.DefaultLanguage = NormalizeLanguage(cfg.DefaultLanguage)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section. Leveling multipliers of zero are rewritten
// to 1 in place.
func (c *Config) Validate() error {
	if c.MaintenanceInterval <= 0 {
		return errors.New("maintenance_interval_minutes must be > 0")
	}
	if err := c.Leveling.Validate(); err != nil {
		return err
	}
	return c.Storage.Validate()
}

// Curve builds the level curve described by the leveling section.
func (c LevelingConfig) Curve() leveling.Curve {
	return leveling.Curve{
		Base:     c.CurveBase,
		Growth:   c.CurveGrowth,
		MaxLevel: c.MaxLevel,
	}
}

// Validate rejects curve and award settings that would break the level
// mapping. Role levels must be reachable on the curve. Multipliers of zero
// are treated as unset and become 1.
func (c *LevelingConfig) Validate() error {
	if c.MaxLevel < 2 {
		return errors.New("leveling.max_level must be >= 2")
	}
	curve := c.Curve()
	if err := curve.Validate(); err != nil {
		return fmt.Errorf("leveling: %w", err)
	}
	if c.XPBase < 0 || c.XPVariance < 0 {
		return errors.New("leveling xp range must be non-negative")
	}
	if c.CooldownSeconds < 0 {
		return errors.New("leveling.cooldown_seconds must be non-negative")
	}
	if c.CleanupIntervalSeconds <= 0 {
		return errors.New("leveling.cleanup_interval_seconds must be > 0")
	}
	for _, m := range []*float64{&c.LengthMultiplier, &c.AttachmentMultiplier, &c.LinkMultiplier} {
		if *m < 0 {
			return errors.New("leveling multipliers must be non-negative")
		}
		if *m == 0 {
			*m = 1
		}
	}
	top := curve.EffectiveMaxLevel()
	for level := range c.LevelRoles {
		if level < 1 || level > top {
			return fmt.Errorf("leveling.level_roles: level %d out of range 1..%d", level, top)
		}
	}
	return nil
}

func (c StorageConfig) Validate() error {
	switch c.Driver {
	case "mysql":
		if c.MySQLDSN == "" {
			return errors.New("storage.mysql_dsn is required for the mysql driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	case "json":
		if c.JSONPath == "" {
			return errors.New("storage.json_path is required for the json driver")
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultLogChannel = envString("DEFAULT_LOG_CHANNEL", cfg.DefaultLogChannel)
	cfg.DefaultLanguage = envString("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.MaintenanceInterval = envInt("MAINTENANCE_INTERVAL_MINUTES", cfg.MaintenanceInterval)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Metrics.Enabled = envBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Storage.Driver = envString("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.JSONPath = envString("STORAGE_JSON_PATH", cfg.Storage.JSONPath)
	cfg.Storage.JSONFlushMs = envInt("STORAGE_JSON_FLUSH_MS", cfg.Storage.JSONFlushMs)
	cfg.Storage.MySQLDSN = envString("MYSQL_DSN", cfg.Storage.MySQLDSN)
	cfg.Storage.PostgresDSN = envString("POSTGRES_DSN", cfg.Storage.PostgresDSN)
	cfg.Leveling.Enabled = envBool("LEVELING_ENABLED", cfg.Leveling.Enabled)
	cfg.Leveling.CurveBase = int64(envInt("LEVEL_CURVE_BASE", int(cfg.Leveling.CurveBase)))
	cfg.Leveling.CurveGrowth = envFloat("LEVEL_CURVE_GROWTH", cfg.Leveling.CurveGrowth)
	cfg.Leveling.XPBase = int64(envInt("XP_BASE", int(cfg.Leveling.XPBase)))
	cfg.Leveling.XPVariance = int64(envInt("XP_VARIANCE", int(cfg.Leveling.XPVariance)))
	cfg.Leveling.CooldownSeconds = envInt("XP_COOLDOWN_SECONDS", cfg.Leveling.CooldownSeconds)
	cfg.Leveling.AnnounceChannelID = envString("LEVEL_ANNOUNCE_CHANNEL", cfg.Leveling.AnnounceChannelID)
	cfg.Notifications.AuditToChannel = envBool("AUDIT_TO_CHANNEL", cfg.Notifications.AuditToChannel)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeDriver(value string) string {
	switch strings.ToLower(value) {
	case "json", "mysql", "postgres":
		return strings.ToLower(value)
	default:
		return "sqlite"
	}
}

// NormalizeLanguage maps unsupported language codes to English.
func NormalizeLanguage(value string) string {
	switch strings.ToLower(value) {
	case "fr", "es":
		return strings.ToLower(value)
	default:
		return "en"
	}
}
