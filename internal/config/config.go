// Package config provides configuration management for the Clever Edge engine.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App            AppConfig                 `mapstructure:"app" validate:"required"`
	Database       DatabaseConfig            `mapstructure:"database"`
	Redis          RedisConfig               `mapstructure:"redis"`
	Kafka          KafkaConfig               `mapstructure:"kafka"`
	Providers      ProviderConfig            `mapstructure:"providers" validate:"required"`
	Metrics        MetricsConfig             `mapstructure:"metrics"`
	Scheduler      SchedulerConfig           `mapstructure:"scheduler"`
	ActiveStrategy string                    `mapstructure:"active_strategy" validate:"required"`
	Strategies     map[string]StrategyConfig `mapstructure:"strategies" validate:"required,min=1,dive"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	Workers     int    `mapstructure:"workers" validate:"gte=0"`
}

// DatabaseConfig represents the Postgres persistence sink connection
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// RedisConfig represents the Redis reporting sink
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db" validate:"gte=0"`
	TTLMinutes int    `mapstructure:"ttl_minutes" validate:"gte=0"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaConfig represents the Kafka reporting sink
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `mapstructure:"topic" validate:"required_if=Enabled true"`
}

// ProviderConfig represents the HTTP collaborators supplying quotes, factors and history
type ProviderConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"gte=0"`
}

// MetricsConfig represents metrics and health endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// SchedulerConfig represents pattern re-discovery scheduling
type SchedulerConfig struct {
	RediscoveryCron string   `mapstructure:"rediscovery_cron"`
	Corpora         []string `mapstructure:"corpora"`
	TimeoutMinutes  int      `mapstructure:"timeout_minutes" validate:"gte=0"`
	CycleCron       string   `mapstructure:"cycle_cron"`
	MarketsFile     string   `mapstructure:"markets_file"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Strategy returns the active strategy configuration
func (c *Config) Strategy() (StrategyConfig, error) {
	strategy, ok := c.Strategies[c.ActiveStrategy]
	if !ok {
		return StrategyConfig{}, fmt.Errorf("active strategy %q is not defined", c.ActiveStrategy)
	}
	if strategy.Version == "" {
		strategy.Version = c.ActiveStrategy
	}
	return strategy, nil
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		sslMode,
	)
}
