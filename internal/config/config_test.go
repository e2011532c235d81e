package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("CLIENT_ID", "test-client")
	t.Setenv("CLIENT_SECRET", "test-secret")
	t.Setenv("REDIRECT_URI", "https://example.ngrok.io/auth")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-client", cfg.ClientID)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, "popular", cfg.File.FrontSubreddit)
	assert.Equal(t, 25, cfg.File.ListingLimit)
	assert.Equal(t, 5*time.Minute, cfg.File.PageCacheTTL)
	assert.True(t, cfg.SecureCookies())
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("CLIENT_ID", "")
	t.Setenv("CLIENT_SECRET", "")
	t.Setenv("REDIRECT_URI", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRedirectURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{"https tunnel", "https://example.ngrok.io/auth", false},
		{"local http", "http://localhost:8000/auth", false},
		{"wrong path", "https://example.ngrok.io/callback", true},
		{"relative", "/auth", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("REDIRECT_URI", tt.uri)

			_, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateStoreBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestLoadFileConfig(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "jeddit.yaml")
	content := `
pinned:
  - golang
  - programming
front_subreddit: all
listing_limit: 50
page_cache_ttl: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("JEDDIT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"golang", "programming"}, cfg.File.Pinned)
	assert.Equal(t, "all", cfg.File.FrontSubreddit)
	assert.Equal(t, 50, cfg.File.ListingLimit)
	assert.Equal(t, time.Minute, cfg.File.PageCacheTTL)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		c := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, c.SlogLevel(), "level %q", tt.level)
	}
}
