package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/qualichat/qc-backend/internal/entity"
	pkgRetry "github.com/qualichat/qc-backend/internal/pkg/retry"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`

	// Database configuration (chat transcript and dataset audit log)
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Chart render service
	RenderConnectorCfg RenderConnectorConfig `envPrefix:"RENDER_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// In-memory session store configuration
	SessionCfg SessionConfig `envPrefix:"SESSION_"`

	// Designated column mapping (loaded from JSON file)
	ColumnMapping entity.ColumnMapping

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"true"`

	// Telegram bot configuration (used by the telegram-bot binary)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// RenderConnectorConfig points at the external chart render service.
type RenderConnectorConfig struct {
	HTTPClientConfig
	RenderEndpoint string               `env:"ENDPOINT" envDefault:"/render"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"10s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// FileUploadConfig holds spreadsheet upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"10485760"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"16777216"`
}

// SessionConfig holds TTL settings for the in-memory session store
type SessionConfig struct {
	TTL             time.Duration `env:"TTL" envDefault:"2h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"30"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := loadColumnMapping(cfg); err != nil {
		return nil, fmt.Errorf("load column mapping: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns)
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.SessionCfg.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionCfg.TTL)
	}
	if cfg.FileUploadCfg.MaxFileSize < 1 {
		return fmt.Errorf("FILE_UPLOAD_MAX_FILE_SIZE must be positive, got %d", cfg.FileUploadCfg.MaxFileSize)
	}
	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		return fmt.Errorf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute)
	}
	return nil
}

// defaultColumnMapping matches the column headers of the QC reject
// registers this service was built around. Defect columns are left
// empty so that every remaining column counts as a defect type.
var defaultColumnMapping = entity.ColumnMapping{
	Identifier: "Part Name",
	Date:       "Date",
	Inspected:  "Inspected Qty.",
	Rejected:   "Total Rej Qty.",
}

func loadColumnMapping(cfg *Config) error {
	mappingFile := filepath.Join("internal", "config", "column_mapping.json")

	if _, err := os.Stat(mappingFile); os.IsNotExist(err) {
		fmt.Printf("Warning: column mapping file not found at %s, using default mapping\n", mappingFile)
		cfg.ColumnMapping = defaultColumnMapping
		return nil
	}

	data, err := os.ReadFile(mappingFile)
	if err != nil {
		return fmt.Errorf("read column mapping file: %w", err)
	}

	var mapping entity.ColumnMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return fmt.Errorf("parse column mapping JSON: %w", err)
	}

	if mapping.Identifier == "" || mapping.Date == "" || mapping.Inspected == "" || mapping.Rejected == "" {
		return fmt.Errorf("column mapping file %s must designate identifier, date, inspected and rejected columns", mappingFile)
	}

	cfg.ColumnMapping = mapping
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
