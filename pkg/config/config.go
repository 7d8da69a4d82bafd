package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Period tie-break policies for the latest-endDate fallback.
const (
	TieBreakFirst        = "first"
	TieBreakHighestOrder = "highest_order"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Firebase   FirebaseConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Dashboard  DashboardConfig
	Periods    PeriodConfig
	Workspaces WorkspaceConfig
	Sync       SyncConfig
	Bulletins  BulletinConfig
}

// FirebaseConfig points at the managed document store. An empty project id
// switches the process to offline mode.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
	OfflineSeedFile string
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// PeriodConfig controls academic period resolution.
type PeriodConfig struct {
	TieBreak        string
	RefreshSchedule string
}

// WorkspaceConfig controls the lifetime of per-session read models.
type WorkspaceConfig struct {
	IdleTTL       time.Duration
	SweepSchedule string
}

// SyncConfig tunes the subscription job queue.
type SyncConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// BulletinConfig tunes bulk validation writes.
type BulletinConfig struct {
	UpdateConcurrency int
}

// BackendConfigured reports whether writes should reach the document store.
func (c *Config) BackendConfigured() bool {
	return c != nil && strings.TrimSpace(c.Firebase.ProjectID) != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Firebase = FirebaseConfig{
		ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		CredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
		CredentialsJSON: v.GetString("FIREBASE_CREDENTIALS_JSON"),
		OfflineSeedFile: v.GetString("OFFLINE_SEED_FILE"),
	}

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("AUDIT_ENABLED"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Periods = PeriodConfig{
		TieBreak:        normalizeTieBreak(v.GetString("PERIOD_TIE_BREAK")),
		RefreshSchedule: v.GetString("PERIOD_REFRESH_SCHEDULE"),
	}

	cfg.Workspaces = WorkspaceConfig{
		IdleTTL:       parseDuration(v.GetString("WORKSPACE_IDLE_TTL"), 30*time.Minute),
		SweepSchedule: v.GetString("WORKSPACE_SWEEP_SCHEDULE"),
	}

	cfg.Sync = SyncConfig{
		Workers:    v.GetInt("SYNC_WORKERS"),
		Retries:    v.GetInt("SYNC_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SYNC_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Bulletins = BulletinConfig{
		UpdateConcurrency: v.GetInt("VALIDATION_UPDATE_CONCURRENCY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_CREDENTIALS_JSON", "")
	v.SetDefault("OFFLINE_SEED_FILE", "")

	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "bulletin_audit")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("PERIOD_TIE_BREAK", TieBreakFirst)
	v.SetDefault("PERIOD_REFRESH_SCHEDULE", "@daily")

	v.SetDefault("WORKSPACE_IDLE_TTL", "30m")
	v.SetDefault("WORKSPACE_SWEEP_SCHEDULE", "@every 1m")

	v.SetDefault("SYNC_WORKERS", 1)
	v.SetDefault("SYNC_RETRIES", 5)
	v.SetDefault("SYNC_RETRY_DELAY", "2s")

	v.SetDefault("VALIDATION_UPDATE_CONCURRENCY", 8)
}

func normalizeTieBreak(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case TieBreakHighestOrder:
		return TieBreakHighestOrder
	default:
		return TieBreakFirst
	}
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
