// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like UPSTREAM_CATALOG_URL
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "marketbot"
	}

	if cfg.Upstream.CatalogURL == "" {
		cfg.Upstream.CatalogURL = "https://catalog.wb.ru/catalog/{shard}/v2/catalog"
	}
	if cfg.Upstream.MainMenuURL == "" {
		cfg.Upstream.MainMenuURL = "https://static-basket-01.wbbasket.ru/vol0/data/main-menu-ru-ru-v3.json"
	}
	if len(cfg.Upstream.Hosts) == 0 {
		cfg.Upstream.Hosts = []string{"www.wildberries.ru", "wildberries.ru"}
	}
	if cfg.Upstream.ProductURLTemplate == "" {
		cfg.Upstream.ProductURLTemplate = "https://www.wildberries.ru/catalog/%d/detail.aspx"
	}
	if cfg.Upstream.Locale == "" {
		cfg.Upstream.Locale = "ru"
	}
	if cfg.Upstream.Currency == "" {
		cfg.Upstream.Currency = "rub"
	}
	if cfg.Upstream.Dest == 0 {
		cfg.Upstream.Dest = -1257786
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 10000
	}
	if cfg.Upstream.MaxRetries == 0 {
		cfg.Upstream.MaxRetries = 3
	}
	if cfg.Upstream.RetryBackoff == 0 {
		cfg.Upstream.RetryBackoff = 500
	}
	if cfg.Upstream.RequestInterval == 0 {
		cfg.Upstream.RequestInterval = 300
	}

	if cfg.Search.MaxPages == 0 {
		cfg.Search.MaxPages = 5
	}
	if cfg.Search.MaxItems == 0 {
		cfg.Search.MaxItems = 100
	}
	if cfg.Search.IndexCacheTTL == 0 {
		cfg.Search.IndexCacheTTL = 3600
	}

	// Telegram caps messages at 4096 chars; stay under it by default.
	if cfg.Batch.MaxChars == 0 {
		cfg.Batch.MaxChars = 4000
	}
	if cfg.Batch.MaxItems == 0 {
		cfg.Batch.MaxItems = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Upstream.CatalogURL == "" {
		return fmt.Errorf("upstream.catalog_url is required")
	}
	if !strings.Contains(cfg.Upstream.CatalogURL, "{shard}") {
		return fmt.Errorf("upstream.catalog_url must contain a {shard} placeholder")
	}
	if cfg.Upstream.MainMenuURL == "" {
		return fmt.Errorf("upstream.main_menu_url is required")
	}
	if cfg.Search.MaxPages < 1 {
		return fmt.Errorf("search.max_pages must be positive")
	}
	if cfg.Batch.MaxChars < 1 || cfg.Batch.MaxItems < 1 {
		return fmt.Errorf("batch.max_chars and batch.max_items must be positive")
	}
	return nil
}
