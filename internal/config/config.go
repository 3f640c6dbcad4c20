// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "storefront"
	DefaultPGSSLMode       = "disable"
	DefaultCatalogDriver   = DriverPostgres
	DefaultSQLitePath      = "storefront.db"
	DefaultCacheTTL        = "5m"
	DefaultCacheSize       = 16
	DefaultLLMBaseURL      = "https://api.openai.com/v1"
	DefaultLLMModel        = "gpt-4o-mini"
	DefaultLLMTimeout      = 30
	DefaultLLMRate         = 5.0
	DefaultLLMBurst        = 5
	DefaultMaxHistoryTurns = 10
	DefaultStoreName       = "Storefront"
	DefaultFallbackMessage = "Maaf, asisten sedang tidak dapat menjawab. Silakan coba lagi sebentar lagi."
)

// Catalog drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Catalog   CatalogConfig   `toml:"catalog"`
	LLM       LLMConfig       `toml:"llm"`
	Assistant AssistantConfig `toml:"assistant"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// CatalogConfig selects the product store and tunes the snapshot cache.
type CatalogConfig struct {
	Driver      string `toml:"driver"`
	SQLitePath  string `toml:"sqlite_path"`
	CacheTTL    string `toml:"cache_ttl"`
	CacheSize   int    `toml:"cache_size"`
	RefreshSpec string `toml:"refresh_spec"`
}

// TTL parses CacheTTL, falling back to DefaultCacheTTL when empty or invalid.
func (c CatalogConfig) TTL() time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(c.CacheTTL)); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultCacheTTL)
	return d
}

// LLMConfig holds the OpenAI-compatible completion endpoint and its client-side limits.
type LLMConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RatePerSecond  float64 `toml:"rate_per_second"`
	Burst          int     `toml:"burst"`
}

// Timeout returns the per-request timeout.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultLLMTimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AssistantConfig holds chat turn settings.
type AssistantConfig struct {
	MaxHistoryTurns int    `toml:"max_history_turns"`
	FallbackMessage string `toml:"fallback_message"`
	StoreName       string `toml:"store_name"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Catalog: CatalogConfig{
			Driver:     DefaultCatalogDriver,
			SQLitePath: DefaultSQLitePath,
			CacheTTL:   DefaultCacheTTL,
			CacheSize:  DefaultCacheSize,
		},
		LLM: LLMConfig{
			BaseURL:        DefaultLLMBaseURL,
			Model:          DefaultLLMModel,
			Temperature:    0.3,
			TimeoutSeconds: DefaultLLMTimeout,
			RatePerSecond:  DefaultLLMRate,
			Burst:          DefaultLLMBurst,
		},
		Assistant: AssistantConfig{
			MaxHistoryTurns: DefaultMaxHistoryTurns,
			FallbackMessage: DefaultFallbackMessage,
			StoreName:       DefaultStoreName,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return applyEnv(cfg), nil
}

// applyEnv fills secrets that are usually kept out of the config file.
func applyEnv(cfg Config) Config {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.Postgres.Password == "" {
		cfg.Postgres.Password = os.Getenv("PGPASSWORD")
	}
	return cfg
}
