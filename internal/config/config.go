package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Browser  BrowserConfig
	Crawler  CrawlerConfig
	Sites    SitesConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
}

type BrowserConfig struct {
	Headless         bool
	Timeout          time.Duration
	SettleDelay      time.Duration
	ViewportWidth    int
	ViewportHeight   int
	UserAgent        string
	AcceptLanguage   string
	TimezoneID       string
	Locale           string
	ProxyServer      string
	BlockStylesheets bool
}

type CrawlerConfig struct {
	MaxRetries   int
	BackoffBase  time.Duration
	DefaultLimit int
	MaxLimit     int
}

type SitesConfig struct {
	Store string // file or postgres
	File  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  getDurationOrDefault("SERVER_REQUEST_TIMEOUT", 10*time.Minute),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://localhost:*"}),
		},
		Browser: BrowserConfig{
			Headless:         getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:          getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			SettleDelay:      getDurationOrDefault("BROWSER_SETTLE_DELAY", 2*time.Second),
			ViewportWidth:    getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight:   getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			UserAgent:        getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			AcceptLanguage:   getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"),
			TimezoneID:       getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Seoul"),
			Locale:           getEnvOrDefault("BROWSER_LOCALE", "ko-KR"),
			ProxyServer:      getEnvOrDefault("BROWSER_PROXY", ""),
			BlockStylesheets: getBoolOrDefault("BROWSER_BLOCK_STYLESHEETS", false),
		},
		Crawler: CrawlerConfig{
			MaxRetries:   getIntOrDefault("CRAWLER_MAX_RETRIES", 3),
			BackoffBase:  getDurationOrDefault("CRAWLER_BACKOFF_BASE", time.Second),
			DefaultLimit: getIntOrDefault("CRAWLER_DEFAULT_LIMIT", 20),
			MaxLimit:     getIntOrDefault("CRAWLER_MAX_LIMIT", 100),
		},
		Sites: SitesConfig{
			Store: getEnvOrDefault("SITES_STORE", "file"),
			File:  getEnvOrDefault("SITES_FILE", "data/sites.json"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "storefront_crawler"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: getIntOrDefault("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			CacheTTL: getDurationOrDefault("REDIS_CACHE_TTL", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("BROWSER_TIMEOUT must be positive")
	}

	if c.Browser.SettleDelay < time.Second || c.Browser.SettleDelay > 5*time.Second {
		return fmt.Errorf("BROWSER_SETTLE_DELAY must be between 1s and 5s")
	}

	if c.Crawler.MaxRetries < 0 {
		return fmt.Errorf("CRAWLER_MAX_RETRIES cannot be negative")
	}

	if c.Crawler.DefaultLimit < 1 {
		return fmt.Errorf("CRAWLER_DEFAULT_LIMIT must be at least 1")
	}

	if c.Crawler.DefaultLimit > c.Crawler.MaxLimit {
		return fmt.Errorf("CRAWLER_DEFAULT_LIMIT cannot be greater than CRAWLER_MAX_LIMIT")
	}

	switch c.Sites.Store {
	case "file", "postgres":
	default:
		return fmt.Errorf("SITES_STORE must be file or postgres, got %q", c.Sites.Store)
	}

	return nil
}

// BlockedResourceTypes lists the request types the browser aborts.
func (c BrowserConfig) BlockedResourceTypes() []string {
	types := []string{"font", "media"}
	if c.BlockStylesheets {
		types = append(types, "stylesheet")
	}
	return types
}

// Logger builds the process logger from the logging settings.
func (c LoggingConfig) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
