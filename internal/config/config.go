// Package config loads the service's runtime configuration via Viper,
// layering defaults, an optional ~/.neuratrade/config.json file, and
// environment variables (which always win).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/irfndi/neuratrade/internal/utils"
	"github.com/spf13/viper"
)

// Config is the root configuration struct-of-structs.
type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RuleEngine    RuleEngineConfig    `mapstructure:"rule_engine"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Auth          AuthConfig          `mapstructure:"auth"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig configures the relational store, shared by the
// Postgres and SQLite drivers.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	// SQLiteExtensionPath, when set, is loaded via SELECT load_extension(...)
	// on connect (e.g. a custom aggregate used by offline backtests).
	SQLiteExtensionPath string `mapstructure:"sqlite_extension_path"`

	ApplicationName       string `mapstructure:"application_name"`
	ConnectTimeout        int    `mapstructure:"connect_timeout_seconds"`
	StatementTimeout      int    `mapstructure:"statement_timeout_ms"`
	QueryTimeout          int    `mapstructure:"query_timeout_ms"`
	PoolHealthCheckPeriod int    `mapstructure:"pool_health_check_period_seconds"`
	PoolMaxLifetime       int    `mapstructure:"pool_max_lifetime_seconds"`
	PoolIdleTimeout       int    `mapstructure:"pool_idle_timeout_seconds"`
	EnableAsync           bool   `mapstructure:"enable_async"`
}

// RedisConfig configures the live intraday-price cache connection.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RuleEngineConfig configures evaluation-time defaults.
type RuleEngineConfig struct {
	DefaultPriceCacheTTL string `mapstructure:"default_price_cache_ttl"`
	MaxBarsPerEvaluation int    `mapstructure:"max_bars_per_evaluation"`
}

// NotificationsConfig configures the outbound webhook bridge.
type NotificationsConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Timeout    int    `mapstructure:"timeout"`
}

// AuthConfig configures the JWT bearer-token guard on mutating routes.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

var validDrivers = map[string]bool{"postgres": true, "sqlite": true}

// Load reads configuration from defaults, an optional
// ~/.neuratrade/config.json, and the environment (highest precedence),
// then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".neuratrade"))
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "change-me-in-production")
	v.SetDefault("database.dbname", "neuratrade")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")
	v.SetDefault("database.sqlite_path", "neuratrade.db")
	v.SetDefault("database.sqlite_extension_path", "")
	v.SetDefault("database.application_name", "neuratrade-rule-engine")
	v.SetDefault("database.connect_timeout_seconds", 10)
	v.SetDefault("database.statement_timeout_ms", 0)
	v.SetDefault("database.query_timeout_ms", 0)
	v.SetDefault("database.pool_health_check_period_seconds", 0)
	v.SetDefault("database.pool_max_lifetime_seconds", 0)
	v.SetDefault("database.pool_idle_timeout_seconds", 0)
	v.SetDefault("database.enable_async", false)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rule_engine.default_price_cache_ttl", "60s")
	v.SetDefault("rule_engine.max_bars_per_evaluation", 500)

	v.SetDefault("notifications.webhook_url", "")
	v.SetDefault("notifications.timeout", 10)

	v.SetDefault("auth.jwt_secret", "")
}

// RedactedSummary returns a map of configuration values safe to write
// to startup logs: the database password, JWT secret, and webhook URL
// are masked rather than omitted, so operators can still eyeball which
// value was loaded without the secret itself hitting the log stream.
func (c *Config) RedactedSummary() map[string]string {
	return map[string]string{
		"environment":               c.Environment,
		"log_level":                 c.LogLevel,
		"database.driver":           c.Database.Driver,
		"database.host":             c.Database.Host,
		"database.dbname":           c.Database.DBName,
		"database.password":         utils.MaskPassword(c.Database.Password),
		"database.url":              utils.MaskConnectionString(c.Database.DatabaseURL),
		"redis.host":                c.Redis.Host,
		"redis.password":            utils.MaskSecret(c.Redis.Password),
		"auth.jwt_secret":           utils.MaskSecret(c.Auth.JWTSecret),
		"notifications.webhook_url": utils.MaskConnectionString(c.Notifications.WebhookURL),
	}
}

func validate(cfg *Config) error {
	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be one of postgres, sqlite; got %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver == "sqlite" && strings.TrimSpace(cfg.Database.SQLitePath) == "" {
		return fmt.Errorf("database.sqlite_path is required when database.driver is sqlite")
	}
	return nil
}
