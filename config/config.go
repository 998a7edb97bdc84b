package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Community CommunityConfig
	Feedback  FeedbackConfig
	Vision    VisionConfig
	Matching  MatchingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds supermarket feed configuration
type CatalogConfig struct {
	FeedURL   string        `mapstructure:"feed_url"`
	CacheFile string        `mapstructure:"cache_file"`
	MaxAge    time.Duration `mapstructure:"max_age"`
}

// CommunityConfig holds community price API configuration
type CommunityConfig struct {
	APIURL        string        `mapstructure:"api_url"`
	ContributorID string        `mapstructure:"contributor_id"`
	BatchSize     int           `mapstructure:"batch_size"`
	Timeout       time.Duration `mapstructure:"timeout"`
	AllowedHosts  []string      `mapstructure:"allowed_hosts"`
}

// FeedbackConfig holds local feedback ledger configuration
type FeedbackConfig struct {
	LedgerFile string `mapstructure:"ledger_file"`
}

// VisionConfig holds Ollama vision model configuration
type VisionConfig struct {
	OllamaURL string        `mapstructure:"ollama_url"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Enabled   bool          `mapstructure:"enabled"`
}

// MatchingConfig holds product matching and price comparison tuning
type MatchingConfig struct {
	MinOverlap         float64 `mapstructure:"min_overlap"`
	PriceTolerance     float64 `mapstructure:"price_tolerance"`
	DealDiscount       float64 `mapstructure:"deal_discount"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Catalog defaults
	v.SetDefault("catalog.feed_url", "")
	v.SetDefault("catalog.cache_file", "data/supermarkets-cache.json")
	v.SetDefault("catalog.max_age", "24h")

	// Community API defaults
	v.SetDefault("community.api_url", "https://api.checkjebon.nl")
	v.SetDefault("community.contributor_id", "pricelens")
	v.SetDefault("community.batch_size", 10)
	v.SetDefault("community.timeout", "10s")
	v.SetDefault("community.allowed_hosts", []string{})

	// Feedback ledger defaults
	v.SetDefault("feedback.ledger_file", "memory/grocery-feedback.jsonl")

	// Vision defaults
	v.SetDefault("vision.ollama_url", "http://localhost:11434/api/generate")
	v.SetDefault("vision.model", "llama3.2-vision:11b")
	v.SetDefault("vision.timeout", "120s")
	v.SetDefault("vision.enabled", true)

	// Matching defaults
	v.SetDefault("matching.min_overlap", 0.30)
	v.SetDefault("matching.price_tolerance", 0.05)
	v.SetDefault("matching.deal_discount", 0.75)
	v.SetDefault("matching.enable_debug_logging", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Feedback.LedgerFile == "" {
		return fmt.Errorf("feedback ledger file is required (set PRICELENS_FEEDBACK_LEDGER_FILE)")
	}

	if config.Catalog.MaxAge <= 0 {
		return fmt.Errorf("catalog max age must be positive, got: %s", config.Catalog.MaxAge)
	}

	if config.Community.BatchSize <= 0 {
		return fmt.Errorf("community batch size must be positive, got: %d", config.Community.BatchSize)
	}

	// Zero is rejected rather than treated as "match anything": the matcher
	// reads a non-positive threshold as unset and falls back to its default,
	// so a configured zero could never take effect.
	if config.Matching.MinOverlap <= 0 || config.Matching.MinOverlap >= 1 {
		return fmt.Errorf("matching min overlap must be in (0, 1), got: %g", config.Matching.MinOverlap)
	}

	if config.Matching.PriceTolerance < 0 {
		return fmt.Errorf("matching price tolerance must not be negative, got: %g", config.Matching.PriceTolerance)
	}

	if config.Matching.DealDiscount <= 0 || config.Matching.DealDiscount >= 1 {
		return fmt.Errorf("matching deal discount must be in (0, 1), got: %g", config.Matching.DealDiscount)
	}

	return nil
}
