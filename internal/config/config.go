package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment
// variables. A .env file in the working directory is loaded first if present.
type Config struct {
	// ClientID and ClientSecret are the OAuth2 credentials issued when the
	// app is registered at https://www.reddit.com/prefs/apps.
	ClientID     string `envconfig:"CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"CLIENT_SECRET" required:"true"`

	// RedirectURI is the callback URL registered with Reddit. It must be an
	// absolute URL ending in /auth. During local development this usually
	// points at a tunnel forwarding to the local server.
	RedirectURI string `envconfig:"REDIRECT_URI" required:"true"`

	// RedisURL is the cache and session store when STORE_BACKEND=redis.
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`

	// Port is the HTTP server port. Defaults to 8000.
	Port int `envconfig:"PORT" default:"8000"`

	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogFile, when set, sends JSON logs to a size-rotated file instead of
	// stdout.
	LogFile string `envconfig:"LOG_FILE"`

	// DataDir is where the sqlite store backend keeps its database.
	// Defaults to ~/.jeddit.
	DataDir string `envconfig:"DATA_DIR"`

	// StoreBackend selects the cache/session store: redis, sqlite or memory.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"redis"`

	// ConfigFile is an optional YAML file with UI preferences (pinned
	// subreddits, cache TTL overrides).
	ConfigFile string `envconfig:"JEDDIT_CONFIG"`

	// CORSOrigins is a comma-separated list of origins allowed to call the
	// /api endpoints cross-origin. Empty disables CORS headers.
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	// File holds the optional YAML config, populated by Load.
	File FileConfig `ignored:"true"`
}

// FileConfig is the optional YAML configuration file.
type FileConfig struct {
	// Pinned subreddits shown in the navigation bar.
	Pinned []string `yaml:"pinned"`

	// FrontSubreddit is the listing shown to anonymous visitors on /.
	FrontSubreddit string `yaml:"front_subreddit"`

	// ListingLimit is the number of posts requested per page.
	ListingLimit int `yaml:"listing_limit"`

	// PageCacheTTL overrides how long successful API responses are cached.
	PageCacheTTL time.Duration `yaml:"page_cache_ttl"`
}

// Load reads Config from the environment. A .env file is loaded first when
// present (and ignored when missing), matching how the app is configured in
// development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".jeddit")
	}

	if c.ConfigFile != "" {
		fc, err := loadFileConfig(c.ConfigFile)
		if err != nil {
			return nil, err
		}
		c.File = *fc
	}
	c.File.applyDefaults()

	return &c, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return fmt.Errorf("parsing REDIRECT_URI: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("REDIRECT_URI must be an absolute URL, got %q", c.RedirectURI)
	}
	if u.Path != "/auth" {
		return fmt.Errorf("REDIRECT_URI path must be /auth, got %q", u.Path)
	}
	switch c.StoreBackend {
	case "redis", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want redis, sqlite or memory)", c.StoreBackend)
	}
	return nil
}

func loadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return &fc, nil
}

func (f *FileConfig) applyDefaults() {
	if f.FrontSubreddit == "" {
		f.FrontSubreddit = "popular"
	}
	if f.ListingLimit <= 0 {
		f.ListingLimit = 25
	}
	if f.PageCacheTTL <= 0 {
		f.PageCacheTTL = 5 * time.Minute
	}
}

// SecureCookies reports whether session cookies should carry the Secure
// flag. True when the registered redirect URI is https, which covers any
// real deployment and tunnel; plain http only appears in local testing.
func (c *Config) SecureCookies() bool {
	u, err := url.Parse(c.RedirectURI)
	return err == nil && u.Scheme == "https"
}

// DBPath returns the sqlite database location for the sqlite store backend.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "jeddit.db")
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
