package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the tests touch so values from the host do not leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SNX_APP_NAME", "SNX_APP_ENV", "SNX_APP_PORT",
		"SNX_BACKEND_BASE_URL", "SNX_BACKEND_MAX_RETRIES", "SNX_BACKEND_TIMEOUT",
		"SNX_TOKEN_STORE_DRIVER", "SNX_TOKEN_STORE_PATH",
		"SNX_CONSOLE_PAGE_SIZE", "SNX_HTTP_CORS_ALLOW_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sparknexora-backoffice", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "http://localhost:5000/api", cfg.Backend.BaseURL)
		assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, "file", cfg.TokenStore.Driver)
		assert.Equal(t, "authToken", cfg.TokenStore.Key)
		assert.Equal(t, 10, cfg.Console.PageSize)
		assert.Equal(t, 5, cfg.Console.RecentLimit)
		assert.Equal(t, 5*time.Second, cfg.Console.NotificationDuration)
		assert.Equal(t, "Admin User", cfg.Console.FallbackName)
		assert.Equal(t, 5, cfg.HTTP.AuthRateLimitRequests)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
		assert.Equal(t, "snx_console", cfg.HTTP.SessionCookieName)
		assert.Equal(t, "/metrics", cfg.Metrics.Path)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("loads values from environment variables with SNX prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNX_APP_NAME", "console-test")
		t.Setenv("SNX_APP_PORT", "9000")
		t.Setenv("SNX_BACKEND_BASE_URL", "https://api.example.com/api")
		t.Setenv("SNX_BACKEND_MAX_RETRIES", "2")
		t.Setenv("SNX_BACKEND_TIMEOUT", "3s")
		t.Setenv("SNX_TOKEN_STORE_DRIVER", "redis")
		t.Setenv("SNX_CONSOLE_PAGE_SIZE", "25")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "console-test", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "https://api.example.com/api", cfg.Backend.BaseURL)
		assert.Equal(t, 2, cfg.Backend.MaxRetries)
		assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
		assert.Equal(t, "redis", cfg.TokenStore.Driver)
		assert.Equal(t, 25, cfg.Console.PageSize)
	})

	t.Run("rejects relative backend URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNX_BACKEND_BASE_URL", "/api")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend.base_url")
	})

	t.Run("rejects unknown token store driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNX_TOKEN_STORE_DRIVER", "etcd")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token_store.driver")
	})

	t.Run("rejects oversized page", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNX_CONSOLE_PAGE_SIZE", "500")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "console.page_size")
	})
}

func TestProductionValidation(t *testing.T) {
	t.Run("requires https backend in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNX_APP_ENV", "production")
		t.Setenv("SNX_BACKEND_BASE_URL", "http://api.example.com")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "https")
	})

	t.Run("rejects memory token store in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNX_APP_ENV", "production")
		t.Setenv("SNX_BACKEND_BASE_URL", "https://api.example.com")
		t.Setenv("SNX_TOKEN_STORE_DRIVER", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not durable")
	})

	t.Run("accepts a complete production config", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNX_APP_ENV", "production")
		t.Setenv("SNX_BACKEND_BASE_URL", "https://api.example.com")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.local", Port: 6380}
	assert.Equal(t, "cache.local:6380", r.Addr())
}
