package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the mediahost API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	S3       S3Config
	Auth     AuthConfig
	Metrics  MetricsConfig
	Upload   UploadConfig
	Quota    QuotaConfig
	Cleanup  CleanupConfig
	Media    MediaConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	AutoMigrate bool
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MigrateURL returns the DSN in the form expected by the golang-migrate pgx5 driver.
func (p PostgresConfig) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries credentials for the enterprise object storage provider.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	PublicBaseURL   string
}

// S3Config carries credentials for the S3-compatible edge storage provider.
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicBaseURL   string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// UploadConfig bounds the presign/confirm protocol.
type UploadConfig struct {
	MaxFileSize   int64
	PresignExpiry time.Duration
}

// QuotaConfig controls the usage cache.
type QuotaConfig struct {
	CacheTTL  time.Duration
	CacheSize int
}

// CleanupConfig controls the orphan sweeps.
type CleanupConfig struct {
	Interval      time.Duration
	PendingMaxAge time.Duration
	FailedMaxAge  time.Duration
	BatchSize     int
}

// MediaConfig locates the external media tools.
type MediaConfig struct {
	FFprobePath  string
	FFmpegPath   string
	ProbeTimeout time.Duration
	ThumbnailMax int
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("MEDIAHOST_API_HOST", "0.0.0.0"),
			Port:         getInt("MEDIAHOST_API_PORT", 8080),
			ReadTimeout:  getDuration("MEDIAHOST_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("MEDIAHOST_API_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:  getDuration("MEDIAHOST_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:        getString("POSTGRES_HOST", "localhost"),
			Port:        getInt("POSTGRES_PORT", 5432),
			User:        getString("POSTGRES_USER", "mediahost_app"),
			Password:    getString("POSTGRES_PASSWORD", "change-me"),
			Database:    getString("POSTGRES_DB", "mediahost"),
			SSLMode:     strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			AutoMigrate: getBool("DB_AUTO_MIGRATE", true),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", ""),
			AccessKeyID:     getString("MINIO_ACCESS_KEY", ""),
			SecretAccessKey: getString("MINIO_SECRET_KEY", ""),
			Bucket:          getString("MINIO_BUCKET", ""),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", "us-east-1"),
			PublicBaseURL:   getString("MINIO_PUBLIC_URL", ""),
		},
		S3: S3Config{
			Endpoint:        getString("S3_ENDPOINT", ""),
			AccessKeyID:     getString("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getString("S3_SECRET_ACCESS_KEY", ""),
			Bucket:          getString("S3_BUCKET", ""),
			Region:          getString("S3_REGION", "auto"),
			PublicBaseURL:   getString("S3_PUBLIC_URL", ""),
		},
		Auth: AuthConfig{
			AccessTokenSecret: getString("MEDIAHOST_JWT_SECRET", "change-me-to-a-32-byte-secret"),
			Issuer:            getString("MEDIAHOST_JWT_ISSUER", "mediahost"),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("MEDIAHOST_METRICS_PATH", "/metrics"),
		},
		Upload: UploadConfig{
			MaxFileSize:   getInt64("UPLOAD_MAX_FILE_SIZE", 50*1024*1024),
			PresignExpiry: getDuration("UPLOAD_PRESIGN_EXPIRY", 15*time.Minute),
		},
		Quota: QuotaConfig{
			CacheTTL:  getDuration("QUOTA_CACHE_TTL", 5*time.Minute),
			CacheSize: getInt("QUOTA_CACHE_SIZE", 16),
		},
		Cleanup: CleanupConfig{
			Interval:      getDuration("CLEANUP_INTERVAL", 10*time.Minute),
			PendingMaxAge: getDuration("CLEANUP_PENDING_MAX_AGE", 30*time.Minute),
			FailedMaxAge:  getDuration("CLEANUP_FAILED_MAX_AGE", 7*24*time.Hour),
			BatchSize:     getInt("CLEANUP_BATCH_SIZE", 500),
		},
		Media: MediaConfig{
			FFprobePath:  getString("FFPROBE_PATH", "ffprobe"),
			FFmpegPath:   getString("FFMPEG_PATH", "ffmpeg"),
			ProbeTimeout: getDuration("MEDIA_PROBE_TIMEOUT", 30*time.Second),
			ThumbnailMax: getInt("MEDIA_THUMBNAIL_MAX", 480),
		},
	}

	if cfg.Upload.MaxFileSize <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if cfg.Upload.PresignExpiry <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_PRESIGN_EXPIRY must be positive")
	}
	if cfg.Cleanup.BatchSize <= 0 {
		cfg.Cleanup.BatchSize = 500
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
