package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Catalog  CatalogConfig
	S3       S3Config
	Payment  PaymentConfig
	CEP      CEPConfig
	Kafka    KafkaConfig
	Session  SessionConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds the admin API key.
type AuthConfig struct {
	APIKey string
}

// CatalogConfig locates the menu. An empty path uses the built-in menu.
type CatalogConfig struct {
	Path string
}

// S3Config holds AWS S3 configuration for the catalog file.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "catalogs/")
}

// PaymentConfig holds payment provider selection and credentials.
// Credentials are optional here; a checkout with a missing one fails.
type PaymentConfig struct {
	Provider               string
	StripeSecretKey        string
	MercadoPagoAccessToken string
	Timeout                time.Duration
	PublicBaseURL          string
}

// CEPConfig holds the postal code lookup service configuration.
type CEPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// KafkaConfig holds the order events publisher configuration.
// No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Timeout time.Duration
}

// SessionConfig holds browsing session settings.
type SessionConfig struct {
	TTL time.Duration
}

// Load loads configuration from environment variables. Variables from an
// optional .env file (ENV_FILE) are applied first without overriding the
// process environment.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: databaseFromEnv(),
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "sa-east-1"),
			Prefix:  getEnv("S3_PREFIX", "catalogs/"),
		},
		Payment: PaymentConfig{
			Provider:               getEnv("PAYMENT_PROVIDER", "stripe"),
			StripeSecretKey:        getEnv("STRIPE_SECRET_KEY", ""),
			MercadoPagoAccessToken: getEnv("MERCADO_PAGO_ACCESS_TOKEN", ""),
			Timeout:                time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 15)) * time.Second,
			PublicBaseURL:          getEnv("PUBLIC_BASE_URL", "http://localhost:5173"),
		},
		CEP: CEPConfig{
			BaseURL: getEnv("CEP_BASE_URL", "https://viacep.com.br"),
			Timeout: time.Duration(getEnvAsInt("CEP_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "pizzaria.orders"),
			Timeout: time.Duration(getEnvAsInt("KAFKA_TIMEOUT_SECONDS", 3)) * time.Second,
		},
		Session: SessionConfig{
			TTL: time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDatabase loads only the database settings, for tools that do not
// serve HTTP.
func LoadDatabase() (*DatabaseConfig, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}
	cfg := databaseFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func databaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "pizzaria"),
		MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
		MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
		MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("admin API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Payment.Provider != "stripe" && c.Payment.Provider != "mercadopago" {
		return fmt.Errorf("invalid payment provider: %s (must be stripe or mercadopago)", c.Payment.Provider)
	}

	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("payment timeout must be positive")
	}

	if c.CEP.BaseURL == "" {
		return fmt.Errorf("CEP base URL is required")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Timeout <= 0 {
		return fmt.Errorf("kafka timeout must be positive when brokers are set")
	}

	return nil
}

// Validate validates the database settings.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// loadDotEnv applies path if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
