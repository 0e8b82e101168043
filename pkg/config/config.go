package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the single configuration object the observability core is built from.
// Subsystem sections mirror the exported behavior: Logging drives the structured
// logger, Metrics the collector, Health the monitor, Reporting the generator.
// Infrastructure sections (Events, Cache, CloudWatch, S3) enable optional
// collaborators wired at the composition root.
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Health     HealthConfig
	Reporting  ReportingConfig
	Tracing    TracingConfig
	Events     EventsConfig
	Cache      CacheConfig
	CloudWatch CloudWatchConfig
	S3         S3Config
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level             string // debug | info | warn | error
	Format            string // text | json
	File              string // empty disables the file sink
	MaxFileSize       string // "<number><unit>", units B/KB/MB/GB
	MaxFiles          int
	IncludeStackTrace bool
}

type MetricsConfig struct {
	Enabled            bool
	CollectionInterval time.Duration // <= 0 disables the self-collection tick
	RetentionDays      int
	MaxSeriesLength    int    // hard cap per series between pruning ticks
	ExportFormat       string // advisory metadata only
	Environment        string
}

type HealthConfig struct {
	Enabled  bool
	Interval time.Duration // default interval for registered checks
	Timeout  time.Duration // default per-run budget
}

type ReportingConfig struct {
	Enabled       bool
	Schedule      string // cron-like, stored for external schedulers, not acted upon
	OutputDir     string
	RetentionDays int
}

// TracingConfig is recognized for completeness; no component in this module
// consumes it. Trace emission belongs to an external collaborator.
type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

type EventsConfig struct {
	NATSEnabled bool
	NATSURL     string
	SubjectBase string
}

type CacheConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type CloudWatchConfig struct {
	Enabled         bool
	Namespace       string
	LogGroupName    string
	LogStreamName   string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BufferSize      int
	FlushInterval   time.Duration
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	ReportRPS      float64
	ReportBurst    int
}

func Load() (*Config, error) {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	collectionInterval, err := parseDuration(getEnv("METRICS_COLLECTION_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_COLLECTION_INTERVAL: %w", err)
	}

	metricsRetention, err := strconv.Atoi(getEnv("METRICS_RETENTION_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_RETENTION_DAYS: %w", err)
	}

	maxSeriesLength, err := strconv.Atoi(getEnv("METRICS_MAX_SERIES_LENGTH", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_MAX_SERIES_LENGTH: %w", err)
	}

	healthInterval, err := parseDuration(getEnv("HEALTH_CHECK_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HEALTH_CHECK_INTERVAL: %w", err)
	}

	healthTimeout, err := parseDuration(getEnv("HEALTH_CHECK_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HEALTH_CHECK_TIMEOUT: %w", err)
	}

	maxLogFiles, err := strconv.Atoi(getEnv("LOG_MAX_FILES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_FILES: %w", err)
	}

	reportRetention, err := strconv.Atoi(getEnv("REPORT_RETENTION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_RETENTION_DAYS: %w", err)
	}

	cacheTTL, err := parseDuration(getEnv("CACHE_TTL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	cacheDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cwBufferSize, err := strconv.Atoi(getEnv("CLOUDWATCH_BUFFER_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_BUFFER_SIZE: %w", err)
	}

	cwFlushInterval, err := parseDuration(getEnv("CLOUDWATCH_FLUSH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_FLUSH_INTERVAL: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	reportRPS, err := strconv.ParseFloat(getEnv("REPORT_RATE_LIMIT_RPS", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_RATE_LIMIT_RPS: %w", err)
	}

	reportBurst, err := strconv.Atoi(getEnv("REPORT_RATE_LIMIT_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8090"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:             getEnv("LOG_LEVEL", "info"),
			Format:            getEnv("LOG_FORMAT", "text"),
			File:              getEnv("LOG_FILE", ""),
			MaxFileSize:       getEnv("LOG_MAX_FILE_SIZE", "10MB"),
			MaxFiles:          maxLogFiles,
			IncludeStackTrace: getEnvBool("LOG_INCLUDE_STACK_TRACE", true),
		},
		Metrics: MetricsConfig{
			Enabled:            getEnvBool("METRICS_ENABLED", true),
			CollectionInterval: collectionInterval,
			RetentionDays:      metricsRetention,
			MaxSeriesLength:    maxSeriesLength,
			ExportFormat:       getEnv("METRICS_EXPORT_FORMAT", "prometheus"),
			Environment:        getEnv("ENVIRONMENT", "development"),
		},
		Health: HealthConfig{
			Enabled:  getEnvBool("HEALTH_ENABLED", true),
			Interval: healthInterval,
			Timeout:  healthTimeout,
		},
		Reporting: ReportingConfig{
			Enabled:       getEnvBool("REPORTING_ENABLED", true),
			Schedule:      getEnv("REPORT_SCHEDULE", "0 0 * * *"),
			OutputDir:     getEnv("REPORT_OUTPUT_DIR", "reports"),
			RetentionDays: reportRetention,
		},
		Tracing: TracingConfig{
			Enabled:  getEnvBool("TRACING_ENABLED", false),
			Endpoint: getEnv("TRACING_ENDPOINT", ""),
		},
		Events: EventsConfig{
			NATSEnabled: getEnvBool("NATS_ENABLED", false),
			NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectBase: getEnv("NATS_SUBJECT_BASE", "observability.events"),
		},
		Cache: CacheConfig{
			Enabled:      getEnvBool("CACHE_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           cacheDB,
			TTL:          cacheTTL,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		CloudWatch: CloudWatchConfig{
			Enabled:         getEnvBool("CLOUDWATCH_ENABLED", false),
			Namespace:       getEnv("CLOUDWATCH_NAMESPACE", "ObservabilityCore/Harness"),
			LogGroupName:    getEnv("CLOUDWATCH_LOG_GROUP", "/observability-core/logs"),
			LogStreamName:   getEnv("CLOUDWATCH_LOG_STREAM", "main"),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("AWS_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BufferSize:      cwBufferSize,
			FlushInterval:   cwFlushInterval,
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "reports"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    presignedTTL,
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8090,http://127.0.0.1:8090")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
			ReportRPS:      reportRPS,
			ReportBurst:    reportBurst,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %q", c.Logging.Format)
	}

	if c.Logging.MaxFiles < 1 {
		return fmt.Errorf("LOG_MAX_FILES must be at least 1")
	}

	if c.Metrics.RetentionDays < 1 {
		return fmt.Errorf("METRICS_RETENTION_DAYS must be at least 1")
	}

	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
