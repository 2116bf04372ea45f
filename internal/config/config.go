package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	Source   Source   `mapstructure:"source"`
	Fetch    Fetch    `mapstructure:"fetch"`
	AI       AI       `mapstructure:"ai"`
	Search   Search   `mapstructure:"search"`
	Research Research `mapstructure:"research"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Server   Server   `mapstructure:"server"`
	Notify   Notify   `mapstructure:"notify"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Source describes the blog that articles are scraped from
type Source struct {
	ListingURL       string   `mapstructure:"listing_url"`
	FeedURL          string   `mapstructure:"feed_url"`
	Mode             string   `mapstructure:"mode"` // listing | feed
	ArticleSegment   string   `mapstructure:"article_segment"`
	ExcludedSegments []string `mapstructure:"excluded_segments"`
	BatchSize        int      `mapstructure:"batch_size"`
}

// Fetch holds outbound page fetch configuration
type Fetch struct {
	Timeout      string `mapstructure:"timeout"`
	UserAgent    string `mapstructure:"user_agent"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string   `mapstructure:"api_key"`
	Models      []string `mapstructure:"models"`
	Timeout     string   `mapstructure:"timeout"`
	Temperature float32  `mapstructure:"temperature"`
}

// RetryConfig holds the generation retry policy
type RetryConfig struct {
	MaxAttempts   int    `mapstructure:"max_attempts"`
	RateLimitStep string `mapstructure:"rate_limit_step"`
	Delay         string `mapstructure:"delay"`
}

// Search holds search provider configuration
type Search struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	Timeout         string          `mapstructure:"timeout"`
	Language        string          `mapstructure:"language"`
	Providers       SearchProviders `mapstructure:"providers"`
}

// SearchProviders holds configuration for all search providers
type SearchProviders struct {
	Google  GoogleSearchConfig `mapstructure:"google"`
	SerpAPI SerpAPIConfig      `mapstructure:"serpapi"`
}

// GoogleSearchConfig holds Google Custom Search configuration
type GoogleSearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	SearchID string `mapstructure:"search_id"`
}

// SerpAPIConfig holds SerpAPI configuration
type SerpAPIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Research holds research candidate and context configuration
type Research struct {
	SearchLimit    int      `mapstructure:"search_limit"`
	MaxCandidates  int      `mapstructure:"max_candidates"`
	BlockedDomains []string `mapstructure:"blocked_domains"`
	ExcerptChars   int      `mapstructure:"excerpt_chars"`
	RequireSources bool     `mapstructure:"require_sources"`
	LockTTL        string   `mapstructure:"lock_ttl"`
}

// Database holds document store configuration
type Database struct {
	Driver string `mapstructure:"driver"` // sqlite3 | postgres
	DSN    string `mapstructure:"dsn"`
}

// Redis holds the optional shared lock backend
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Server holds HTTP API configuration
type Server struct {
	Host         string     `mapstructure:"host"`
	Port         int        `mapstructure:"port"`
	ReadTimeout  string     `mapstructure:"read_timeout"`
	WriteTimeout string     `mapstructure:"write_timeout"`
	JWTSecret    string     `mapstructure:"jwt_secret"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Notify holds notification configuration
type Notify struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".blogsmith")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".blogsmith")

	viper.SetDefault("source.listing_url", "https://beyondchats.com/blogs/")
	viper.SetDefault("source.feed_url", "https://beyondchats.com/feed/")
	viper.SetDefault("source.mode", "listing")
	viper.SetDefault("source.article_segment", "/blogs/")
	viper.SetDefault("source.excluded_segments", []string{"/tag/", "/page/", "/author/"})
	viper.SetDefault("source.batch_size", 5)

	viper.SetDefault("fetch.timeout", "5s")
	viper.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	viper.SetDefault("fetch.max_body_bytes", 5<<20)

	viper.SetDefault("ai.gemini.models", []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-flash-lite-latest"})
	viper.SetDefault("ai.gemini.timeout", "90s")
	viper.SetDefault("ai.gemini.temperature", 0.7)
	viper.SetDefault("ai.retry.max_attempts", 3)
	viper.SetDefault("ai.retry.rate_limit_step", "3s")
	viper.SetDefault("ai.retry.delay", "1s")

	viper.SetDefault("search.default_provider", "duckduckgo")
	viper.SetDefault("search.timeout", "15s")
	viper.SetDefault("search.language", "en")

	viper.SetDefault("research.search_limit", 5)
	viper.SetDefault("research.max_candidates", 4)
	viper.SetDefault("research.blocked_domains", []string{"youtube.com", "youtu.be", "vimeo.com", "tiktok.com"})
	viper.SetDefault("research.excerpt_chars", 2000)
	viper.SetDefault("research.require_sources", false)
	viper.SetDefault("research.lock_ttl", "5m")

	viper.SetDefault("database.driver", "sqlite3")
	viper.SetDefault("database.dsn", "")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "180s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
	})

	bindEnvKeys("search.providers.google.api_key", []string{
		"GOOGLE_CUSTOM_SEARCH_API_KEY",
		"GOOGLE_CSE_API_KEY",
	})

	bindEnvKeys("search.providers.google.search_id", []string{
		"GOOGLE_CUSTOM_SEARCH_ID",
		"GOOGLE_CSE_ID",
	})

	bindEnvKeys("search.providers.serpapi.api_key", []string{
		"SERPAPI_API_KEY",
		"SERPAPI_KEY",
	})

	bindEnvKeys("search.default_provider", []string{
		"SEARCH_PROVIDER",
	})

	bindEnvKeys("database.dsn", []string{
		"DATABASE_URL",
		"BLOGSMITH_DB",
	})

	bindEnvKeys("redis.addr", []string{
		"REDIS_ADDR",
		"REDIS_URL",
	})

	bindEnvKeys("notify.telegram.token", []string{
		"TELEGRAM_BOT_TOKEN",
	})

	bindEnvKeys("notify.telegram.chat_id", []string{
		"TELEGRAM_CHAT_ID",
	})

	bindEnvKeys("server.jwt_secret", []string{
		"BLOGSMITH_JWT_SECRET",
		"JWT_SECRET",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"BLOGSMITH_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Database.DSN == "" && config.Database.Driver == "sqlite3" {
		config.Database.DSN = filepath.Join(config.App.DataDir, "blogsmith.db")
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"fetch.timeout":            config.Fetch.Timeout,
		"ai.gemini.timeout":        config.AI.Gemini.Timeout,
		"ai.retry.rate_limit_step": config.AI.Retry.RateLimitStep,
		"ai.retry.delay":           config.AI.Retry.Delay,
		"search.timeout":           config.Search.Timeout,
		"research.lock_ttl":        config.Research.LockTTL,
		"server.read_timeout":      config.Server.ReadTimeout,
		"server.write_timeout":     config.Server.WriteTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures configuration is internally consistent.
// API keys are checked lazily by the commands that need them.
func validateConfig(config *Config) error {
	var errors []string

	switch config.Search.DefaultProvider {
	case "google":
		if config.Search.Providers.Google.APIKey == "" || config.Search.Providers.Google.SearchID == "" {
			errors = append(errors, "Google Custom Search requires both API key and Search ID. Set GOOGLE_CUSTOM_SEARCH_API_KEY and GOOGLE_CUSTOM_SEARCH_ID")
		}
	case "serpapi":
		if config.Search.Providers.SerpAPI.APIKey == "" {
			errors = append(errors, "SerpAPI requires API key. Set SERPAPI_API_KEY environment variable")
		}
	case "duckduckgo", "mock", "":
	default:
		errors = append(errors, fmt.Sprintf("Unknown search provider: %s. Supported: google, serpapi, duckduckgo, mock", config.Search.DefaultProvider))
	}

	switch config.Source.Mode {
	case "listing", "feed":
	default:
		errors = append(errors, fmt.Sprintf("Unknown source mode: %s. Supported: listing, feed", config.Source.Mode))
	}

	switch config.Database.Driver {
	case "sqlite3", "postgres":
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: sqlite3, postgres", config.Database.Driver))
	}

	if config.AI.Retry.MaxAttempts <= 0 {
		errors = append(errors, "ai.retry.max_attempts must be positive")
	}
	if len(config.AI.Gemini.Models) == 0 {
		errors = append(errors, "ai.gemini.models must list at least one model")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Duration parses a validated duration value, falling back when empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// GetSearchProviderConfig returns configuration for creating a search provider
func (c *Config) GetSearchProviderConfig(providerType string) map[string]string {
	switch providerType {
	case "google":
		return map[string]string{
			"api_key":   c.Search.Providers.Google.APIKey,
			"search_id": c.Search.Providers.Google.SearchID,
		}
	case "serpapi":
		return map[string]string{
			"api_key": c.Search.Providers.SerpAPI.APIKey,
		}
	default:
		return map[string]string{}
	}
}

// HasGeminiKey reports whether a usable Gemini API key is configured
func (c *Config) HasGeminiKey() bool {
	return isValidAPIKey(c.AI.Gemini.APIKey)
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-google-key", "your-gemini-key", "your-serpapi-key",
		"YOUR_API_KEY", "PLACEHOLDER", "CHANGE_ME", "dummy_key",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
