package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	MaxUploadSize int64
	BaseURL       string

	Environment string
	LogLevel    string

	DatabaseURL string
	RedisURL    string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIORegion    string

	WorkerConcurrency int
	JobTimeout        time.Duration
	ResultCacheTTL    time.Duration

	SweepInterval   time.Duration
	StuckAfter      time.Duration
	SweepBatchLimit int

	TranscodeFormat  string
	TranscodeQuality int

	GatewayURL         string
	InternalServiceKey string
	NotifyTimeout      time.Duration

	JWTSecret    string
	SignedURLTTL time.Duration
}

func Load() (*Config, error) {
	// A local .env is a developer convenience only; missing is fine.
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	cfg.Port = getEnvInt("PORT", 8080)
	cfg.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", 50*1024*1024)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
	if cfg.MinIOEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required")
	}

	cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	if cfg.MinIOAccessKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY is required")
	}

	cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")
	if cfg.MinIOSecretKey == "" {
		return nil, fmt.Errorf("MINIO_SECRET_KEY is required")
	}

	cfg.MinIOBucket = getEnvString("MINIO_BUCKET", "images")
	cfg.MinIOUseSSL = getEnvBool("MINIO_USE_SSL", false)
	cfg.MinIORegion = getEnvString("MINIO_REGION", "us-east-1")

	cfg.WorkerConcurrency = getEnvInt("WORKER_CONCURRENCY", 5)
	cfg.JobTimeout, err = getEnvDuration("JOB_TIMEOUT", "5m")
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_TIMEOUT: %w", err)
	}
	cfg.ResultCacheTTL, err = getEnvDuration("RESULT_CACHE_TTL", "10m")
	if err != nil {
		return nil, fmt.Errorf("invalid RESULT_CACHE_TTL: %w", err)
	}

	cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", "5m")
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}
	cfg.StuckAfter, err = getEnvDuration("STUCK_AFTER", "15m")
	if err != nil {
		return nil, fmt.Errorf("invalid STUCK_AFTER: %w", err)
	}
	cfg.SweepBatchLimit = getEnvInt("SWEEP_BATCH_LIMIT", 100)

	cfg.TranscodeFormat = getEnvString("TRANSCODE_FORMAT", "jpeg")
	cfg.TranscodeQuality = getEnvInt("TRANSCODE_QUALITY", 70)

	cfg.GatewayURL = getEnvString("GATEWAY_URL", "http://localhost:8080")
	cfg.InternalServiceKey = getEnvString("INTERNAL_SERVICE_KEY", "internal-service-key")
	cfg.NotifyTimeout, err = getEnvDuration("NOTIFY_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEOUT: %w", err)
	}

	cfg.JWTSecret = getEnvString("JWT_SECRET", "change-me-in-production")
	cfg.SignedURLTTL, err = getEnvDuration("SIGNED_URL_TTL", "1h")
	if err != nil {
		return nil, fmt.Errorf("invalid SIGNED_URL_TTL: %w", err)
	}

	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.Environment = getEnvString("ENVIRONMENT", "development")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return time.ParseDuration(value)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MaxUploadSize < 1 {
		return fmt.Errorf("invalid max upload size: %d", c.MaxUploadSize)
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("invalid worker concurrency: %d", c.WorkerConcurrency)
	}

	if c.TranscodeQuality < 1 || c.TranscodeQuality > 100 {
		return fmt.Errorf("invalid transcode quality: %d", c.TranscodeQuality)
	}

	switch c.TranscodeFormat {
	case "jpeg", "png":
	default:
		return fmt.Errorf("unsupported transcode format: %q", c.TranscodeFormat)
	}

	return nil
}
