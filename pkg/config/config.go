package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string

	// Database performance settings
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// Optional Redis-backed view counter. Empty address disables Redis and
	// view bumps go straight to the store.
	RedisAddr          string
	RedisPassword      string
	ViewFlushInterval  time.Duration

	// Logging settings
	LogLevel  string
	LogFormat string // "json" or "text"
	LogOutput string // "stdout", "stderr", or file path

	// Health check settings
	HealthCheckPort string
	HealthCheckPath string

	// Metrics
	MetricsEnabled bool
	MetricsPath    string
}

// Load reads configuration from the environment with defaults. main imports
// godotenv/autoload so a local .env file is already applied by now.
func Load() *Config {
	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "50"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "15"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))
	dbConnMaxIdleTime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_IDLE_TIME_MINUTES", "5"))

	dbReadTO, _ := time.ParseDuration(getEnv("DB_READ_TIMEOUT", "8s"))
	dbWriteTO, _ := time.ParseDuration(getEnv("DB_WRITE_TIMEOUT", "6s"))
	viewFlush, _ := time.ParseDuration(getEnv("VIEW_FLUSH_INTERVAL", "10s"))

	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret"),

		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		DBConnMaxIdleTime: dbConnMaxIdleTime,
		DBReadTimeout:     dbReadTO,
		DBWriteTimeout:    dbWriteTO,

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		ViewFlushInterval: viewFlush,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),

		HealthCheckPort: getEnv("HEALTH_CHECK_PORT", "8081"),
		HealthCheckPath: getEnv("HEALTH_CHECK_PATH", "/health"),

		MetricsEnabled: metricsEnabled,
		MetricsPath:    getEnv("METRICS_PATH", "/metrics"),
	}

	if path := getEnv("EXCHANGE_CONFIG", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config: file overrides not applied: %v\n", err)
		}
	}

	return cfg
}

// fileOverrides is the subset of settings that may come from a YAML file.
// Environment variables win for anything not present in the file.
type fileOverrides struct {
	DatabaseURL     string `yaml:"database_url"`
	Port            string `yaml:"port"`
	JWTSecret       string `yaml:"jwt_secret"`
	RedisAddr       string `yaml:"redis_addr"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	HealthCheckPort string `yaml:"health_check_port"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var ov fileOverrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if ov.DatabaseURL != "" {
		c.DatabaseURL = ov.DatabaseURL
	}
	if ov.Port != "" {
		c.Port = ov.Port
	}
	if ov.JWTSecret != "" {
		c.JWTSecret = ov.JWTSecret
	}
	if ov.RedisAddr != "" {
		c.RedisAddr = ov.RedisAddr
	}
	if ov.LogLevel != "" {
		c.LogLevel = ov.LogLevel
	}
	if ov.LogFormat != "" {
		c.LogFormat = ov.LogFormat
	}
	if ov.HealthCheckPort != "" {
		c.HealthCheckPort = ov.HealthCheckPort
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
