package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	Backend    BackendConfig
	TokenStore TokenStoreConfig
	Redis      RedisConfig
	Console    ConsoleConfig
	HTTP       HTTPConfig
	Metrics    MetricsConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// BackendConfig describes the external REST backend the console talks to
type BackendConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int           // retries for idempotent (GET) calls only
	RetryDelay time.Duration // initial backoff, doubled per attempt
	UserAgent  string
}

// TokenStoreConfig selects where the console credential is persisted
type TokenStoreConfig struct {
	Driver string // file, sqlite, redis, memory
	Path   string // file path (file driver) or database file (sqlite driver)
	Key    string // well-known key the credential is stored under
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// Addr returns the host:port pair for the redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ConsoleConfig holds admin console behaviour settings
type ConsoleConfig struct {
	PageSize             int
	RecentLimit          int
	NotificationDuration time.Duration
	FallbackName         string // display name used when the backend returns no user
	NoteAuthor           string // addedBy value for admin notes when the session has no name
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool          // stricter limit for console login
	AuthRateLimitRequests int           // max login attempts per window (default: 5)
	AuthRateLimitWindow   time.Duration // login rate limit window (default: 1 minute)
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
	SessionCookieName     string // cookie carrying the console credential
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SNX_ prefix (e.g., SNX_BACKEND_BASE_URL)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SNX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Backend: BackendConfig{
			BaseURL:    v.GetString("backend.base_url"),
			Timeout:    v.GetDuration("backend.timeout"),
			MaxRetries: v.GetInt("backend.max_retries"),
			RetryDelay: v.GetDuration("backend.retry_delay"),
			UserAgent:  v.GetString("backend.user_agent"),
		},
		TokenStore: TokenStoreConfig{
			Driver: v.GetString("token_store.driver"),
			Path:   v.GetString("token_store.path"),
			Key:    v.GetString("token_store.key"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		Console: ConsoleConfig{
			PageSize:             v.GetInt("console.page_size"),
			RecentLimit:          v.GetInt("console.recent_limit"),
			NotificationDuration: v.GetDuration("console.notification_duration"),
			FallbackName:         v.GetString("console.fallback_name"),
			NoteAuthor:           v.GetString("console.note_author"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
			SessionCookieName:     v.GetString("http.session_cookie_name"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sparknexora-backoffice"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:5000/api"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 15 * time.Second
	}
	if cfg.Backend.RetryDelay == 0 {
		cfg.Backend.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Backend.UserAgent == "" {
		cfg.Backend.UserAgent = "SparkNexora-Backoffice/1.0"
	}
	if cfg.TokenStore.Driver == "" {
		cfg.TokenStore.Driver = "file"
	}
	if cfg.TokenStore.Path == "" {
		cfg.TokenStore.Path = "data/credential.json"
	}
	if cfg.TokenStore.Key == "" {
		cfg.TokenStore.Key = "authToken"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "backoffice:"
	}
	if cfg.Console.PageSize == 0 {
		cfg.Console.PageSize = 10
	}
	if cfg.Console.RecentLimit == 0 {
		cfg.Console.RecentLimit = 5
	}
	if cfg.Console.NotificationDuration == 0 {
		cfg.Console.NotificationDuration = 5 * time.Second
	}
	if cfg.Console.FallbackName == "" {
		cfg.Console.FallbackName = "Admin User"
	}
	if cfg.Console.NoteAuthor == "" {
		cfg.Console.NoteAuthor = "Admin"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, forms only
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 60
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	// An empty origin list means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Accept", "Origin"}
	}
	if cfg.HTTP.SessionCookieName == "" {
		cfg.HTTP.SessionCookieName = "snx_console"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("backend.max_retries cannot be negative")
	}

	switch c.TokenStore.Driver {
	case "file", "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("token_store.driver must be one of file, sqlite, redis, memory; got %q", c.TokenStore.Driver)
	}

	if c.Console.PageSize < 1 || c.Console.PageSize > 100 {
		return fmt.Errorf("console.page_size must be between 1 and 100, got %d", c.Console.PageSize)
	}

	if c.App.Env == "production" {
		if u.Scheme != "https" {
			return fmt.Errorf("backend.base_url must use https in production")
		}
		if c.TokenStore.Driver == "memory" {
			return fmt.Errorf("token_store.driver=memory is not durable and cannot be used in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
