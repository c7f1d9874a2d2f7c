package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/storyboard")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")

	cfg, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, AuthModeJWT, cfg.Auth.Mode)
	assert.Equal(t, "authenticated", cfg.Auth.JWTAudience)
	assert.Equal(t, "black-forest-labs/flux-schnell", cfg.Replicate.Model)
	assert.Equal(t, 500*time.Millisecond, cfg.ImageGen.Interval)
	assert.Equal(t, 1, cfg.ImageGen.Burst)
	assert.Contains(t, cfg.DefaultStyle, "shonen/anime")
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("AUTH_MODE", "supabase")
	t.Setenv("SUPABASE_URL", "https://xyz.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("IMAGE_PROVIDER", "placeholder")
	t.Setenv("IMAGE_GEN_INTERVAL", "2s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_OUTPUT", "stdout,/var/log/storyboard.log")

	cfg, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, AuthModeSupabase, cfg.Auth.Mode)
	assert.Equal(t, ImageProviderPlaceholder, cfg.ImageGen.Provider)
	assert.Equal(t, 2*time.Second, cfg.ImageGen.Interval)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, []string{"stdout", "/var/log/storyboard.log"}, cfg.Logger.Output)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StoreDriver: StoreDriverMemory,
			Auth:        AuthConfig{Mode: AuthModeJWT, JWTSecret: "s"},
			ImageGen:    ImageGenConfig{Provider: ImageProviderPlaceholder},
		}
	}

	c := base()
	require.NoError(t, c.Validate())
	assert.Equal(t, 1, c.ImageGen.Burst)

	cases := map[string]func(*Config){
		"postgres without DB_URL": func(c *Config) { c.StoreDriver = StoreDriverPostgres },
		"unknown store":           func(c *Config) { c.StoreDriver = "sqlite" },
		"jwt without secret":      func(c *Config) { c.Auth.JWTSecret = "" },
		"supabase without url":    func(c *Config) { c.Auth.Mode = AuthModeSupabase },
		"oidc without issuer":     func(c *Config) { c.Auth.Mode = AuthModeOIDC },
		"unknown auth":            func(c *Config) { c.Auth.Mode = "basic" },
		"replicate without token": func(c *Config) { c.ImageGen.Provider = ImageProviderReplicate },
		"unknown provider":        func(c *Config) { c.ImageGen.Provider = "dalle" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
