// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Search   SearchConfig   `mapstructure:"search"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// UpstreamConfig holds everything needed to talk to the marketplace
// catalog API. Locale/currency/dest are marketplace-required fixed
// parameters, not business logic.
type UpstreamConfig struct {
	CatalogURL         string   `mapstructure:"catalog_url"`  // {shard} is substituted per category
	MainMenuURL        string   `mapstructure:"main_menu_url"`
	Hosts              []string `mapstructure:"hosts"` // recognized marketplace domains
	ProductURLTemplate string   `mapstructure:"product_url_template"`
	Locale             string   `mapstructure:"locale"`
	Currency           string   `mapstructure:"currency"`
	Dest               int      `mapstructure:"dest"`
	UserAgent          string   `mapstructure:"user_agent"`
	Timeout            int      `mapstructure:"timeout"`          // milliseconds
	MaxRetries         int      `mapstructure:"max_retries"`      // per page
	RetryBackoff       int      `mapstructure:"retry_backoff"`    // milliseconds, base
	RequestInterval    int      `mapstructure:"request_interval"` // milliseconds, shared per host
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SearchConfig holds the default pagination limits for one query.
type SearchConfig struct {
	MaxPages      int `mapstructure:"max_pages"`
	MaxItems      int `mapstructure:"max_items"`
	IndexCacheTTL int `mapstructure:"index_cache_ttl"` // seconds
}

// BatchConfig holds the display-unit limits for the result batcher.
type BatchConfig struct {
	MaxChars int `mapstructure:"max_chars"`
	MaxItems int `mapstructure:"max_items"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the metrics/debug HTTP listener settings.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
