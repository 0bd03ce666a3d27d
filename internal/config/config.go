// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mixwave/media-service/internal/storage"
)

// Config holds all configuration for the application
type Config struct {
	Env      string
	Database DatabaseConfig
	Server   ServerConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	B2       storage.B2Config
	Media    MediaConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port    int
	BaseURL string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// MediaConfig holds upload handling settings
type MediaConfig struct {
	LocalDir      string
	KeyPrefix     string
	MaxUploadSize int64
}

// IsProduction reports whether the service runs in production mode, where
// missing B2 credentials are a startup error rather than a warning.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	cfg.Env = os.Getenv("APP_ENV")
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8080" // default port
	}
	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cfg.Server.Port = serverPort

	cfg.Server.BaseURL = os.Getenv("BASE_URL")
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	// Logging configuration
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsOrigins == "" {
		// Default to allow all origins if not specified (for development)
		cfg.CORS.AllowedOrigins = []string{"*"}
	} else {
		// Parse comma-separated origins
		origins := strings.Split(corsOrigins, ",")
		cfg.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, origin)
			}
		}
		if len(cfg.CORS.AllowedOrigins) == 0 {
			cfg.CORS.AllowedOrigins = []string{"*"}
		}
	}

	// B2 configuration. The bucket is the system of record; credentials are
	// validated here so a misconfigured production deployment fails at
	// startup instead of on the first upload.
	cfg.B2.Endpoint = os.Getenv("B2_ENDPOINT")
	cfg.B2.Region = os.Getenv("B2_REGION")
	if cfg.B2.Region == "" {
		cfg.B2.Region = "us-west-002"
	}
	cfg.B2.Bucket = os.Getenv("B2_BUCKET")
	cfg.B2.KeyID = os.Getenv("B2_ACCESS_KEY_ID")
	cfg.B2.ApplicationKey = os.Getenv("B2_SECRET_ACCESS_KEY")

	b2TimeoutStr := os.Getenv("B2_REQUEST_TIMEOUT")
	if b2TimeoutStr == "" {
		b2TimeoutStr = "20s"
	}
	b2Timeout, err := time.ParseDuration(b2TimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid B2_REQUEST_TIMEOUT: %w", err)
	}
	cfg.B2.RequestTimeout = b2Timeout

	if cfg.IsProduction() && !cfg.B2.Configured() {
		return nil, fmt.Errorf("B2_ENDPOINT, B2_BUCKET, B2_ACCESS_KEY_ID and B2_SECRET_ACCESS_KEY are required in production")
	}

	// Media configuration
	cfg.Media.LocalDir = os.Getenv("MEDIA_LOCAL_DIR")
	if cfg.Media.LocalDir == "" {
		cfg.Media.LocalDir = "uploads"
	}

	cfg.Media.KeyPrefix = os.Getenv("MEDIA_KEY_PREFIX")
	if cfg.Media.KeyPrefix == "" {
		cfg.Media.KeyPrefix = "audio"
	}

	maxUploadStr := os.Getenv("MAX_UPLOAD_SIZE")
	if maxUploadStr == "" {
		maxUploadStr = "524288000" // 500MB, DJ mixes are long
	}
	maxUpload, err := strconv.ParseInt(maxUploadStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}
	cfg.Media.MaxUploadSize = maxUpload

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}
