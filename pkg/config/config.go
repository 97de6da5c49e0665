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

// Session store drivers.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Env      string
	Port     int
	BasePath string

	Backend     BackendConfig
	Session     SessionConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Table       TableConfig
	Uploads     UploadsConfig
	Exports     ExportsConfig
	Dashboard   DashboardConfig
	Audit       AuditConfig
	Attestation AttestationConfig
}

// BackendConfig points at the internship REST backend.
type BackendConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// SessionConfig controls the signed session cookie and its backing store.
type SessionConfig struct {
	Secret          string
	TTL             time.Duration
	CookieName      string
	CookieSecure    bool
	RevalidateAfter time.Duration
	Store           string
	// SweepInterval is how often the memory store drops expired sessions
	// and drafts.
	SweepInterval   time.Duration
}

type DatabaseConfig struct {
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
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TableConfig tunes list pages.
type TableConfig struct {
	PageSize int
}

// UploadRule bounds one kind of uploaded document.
type UploadRule struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// UploadsConfig groups the acceptance letter and report file rules.
type UploadsConfig struct {
	Stage  UploadRule
	Report UploadRule
}

// ExportsConfig controls rendered export storage and signed downloads.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// AuditConfig toggles the postgres audit trail.
type AuditConfig struct {
	Enabled bool
	Workers int
	Retries int
}

// AttestationConfig pre-fills the attestation dialog.
type AttestationConfig struct {
	DefaultSignatory string
	DefaultFunction  string
	DefaultFormat    string
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.BasePath = strings.TrimRight(v.GetString("BASE_PATH"), "/")

	cfg.Backend = BackendConfig{
		BaseURL:      strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("BACKEND_TIMEOUT"), 30*time.Second),
		RetryMax:     v.GetInt("BACKEND_RETRY_MAX"),
		RetryWaitMin: parseDuration(v.GetString("BACKEND_RETRY_WAIT_MIN"), 200*time.Millisecond),
		RetryWaitMax: parseDuration(v.GetString("BACKEND_RETRY_WAIT_MAX"), 2*time.Second),
	}

	cfg.Session = SessionConfig{
		Secret:          v.GetString("SESSION_SECRET"),
		TTL:             parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		CookieName:      v.GetString("SESSION_COOKIE_NAME"),
		CookieSecure:    v.GetBool("SESSION_COOKIE_SECURE"),
		RevalidateAfter: parseDuration(v.GetString("SESSION_REVALIDATE_AFTER"), 5*time.Minute),
		Store:           strings.ToLower(v.GetString("SESSION_STORE")),
		SweepInterval:   parseDuration(v.GetString("SESSION_SWEEP_INTERVAL"), 10*time.Minute),
	}

	cfg.Database = DatabaseConfig{
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	pageSize := v.GetInt("TABLE_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 7
	}
	cfg.Table = TableConfig{PageSize: pageSize}

	cfg.Uploads = UploadsConfig{
		Stage: UploadRule{
			MaxFileSizeBytes: positiveInt64(v.GetInt64("STAGE_UPLOAD_MAX_SIZE"), 10*1024*1024),
			AllowedMIMEs:     splitAndTrim(v.GetString("STAGE_UPLOAD_ALLOWED_MIME_TYPES")),
		},
		Report: UploadRule{
			MaxFileSizeBytes: positiveInt64(v.GetInt64("REPORT_UPLOAD_MAX_SIZE"), 15*1024*1024),
			AllowedMIMEs:     splitAndTrim(v.GetString("REPORT_UPLOAD_ALLOWED_MIME_TYPES")),
		},
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 30*time.Minute),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Audit = AuditConfig{
		Enabled: v.GetBool("ENABLE_AUDIT"),
		Workers: v.GetInt("AUDIT_WORKERS"),
		Retries: v.GetInt("AUDIT_RETRIES"),
	}

	cfg.Attestation = AttestationConfig{
		DefaultSignatory: v.GetString("ATTESTATION_DEFAULT_SIGNATORY"),
		DefaultFunction:  v.GetString("ATTESTATION_DEFAULT_FUNCTION"),
		DefaultFormat:    v.GetString("ATTESTATION_DEFAULT_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("BASE_PATH", "")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:8000")
	v.SetDefault("BACKEND_TIMEOUT", "30s")
	v.SetDefault("BACKEND_RETRY_MAX", 0)
	v.SetDefault("BACKEND_RETRY_WAIT_MIN", "200ms")
	v.SetDefault("BACKEND_RETRY_WAIT_MAX", "2s")

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_COOKIE_NAME", "stages_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_REVALIDATE_AFTER", "5m")
	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "10m")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "stages_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TABLE_PAGE_SIZE", 7)

	v.SetDefault("STAGE_UPLOAD_MAX_SIZE", 10*1024*1024)
	v.SetDefault("STAGE_UPLOAD_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/jpg,image/png")
	v.SetDefault("REPORT_UPLOAD_MAX_SIZE", 15*1024*1024)
	v.SetDefault("REPORT_UPLOAD_ALLOWED_MIME_TYPES", "application/pdf,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document,application/vnd.oasis.opendocument.text")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "2m")

	v.SetDefault("ENABLE_AUDIT", false)
	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 3)

	v.SetDefault("ATTESTATION_DEFAULT_SIGNATORY", "Tassiou ABOUBACAR")
	v.SetDefault("ATTESTATION_DEFAULT_FUNCTION", "Directeur des Ressources Humaines")
	v.SetDefault("ATTESTATION_DEFAULT_FORMAT", "docx")
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

func positiveInt64(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
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
