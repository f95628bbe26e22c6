package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	return &Config{
		Env:        "production",
		Port:       "8080",
		JWTSecret:  "secure-secret-at-least-32-chars-long",
		DBPassword: "secure-password",
		DBSSLMode:  "require",
		S3Bucket:   "media",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"Valid production", func(*Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing JWT secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Default JWT secret in production", func(c *Config) { c.JWTSecret = DefaultJWTSecret }, true},
		{"Short JWT secret in production", func(c *Config) { c.JWTSecret = "short" }, true},
		{"Default DB password in production", func(c *Config) { c.DBPassword = "password" }, true},
		{"SSL disabled in production", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"Empty SSL mode in prod alias", func(c *Config) { c.Env = "prod"; c.DBSSLMode = "" }, true},
		{"Missing bucket in production", func(c *Config) { c.S3Bucket = "" }, true},
		{"Development allows defaults", func(c *Config) {
			c.Env = "development"
			c.JWTSecret = DefaultJWTSecret
			c.DBPassword = "password"
			c.DBSSLMode = "disable"
			c.S3Bucket = ""
		}, false},
		{"Negative pool size", func(c *Config) { c.DBMaxOpenConns = -1 }, true},
		{"Negative retention", func(c *Config) { c.NotificationRetentionDays = -3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("DEV_ROOT_ADMIN_EMAIL")

	os.Setenv("APP_ENV", "test")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("DEV_ROOT_ADMIN_EMAIL", " Admin@Isintu.Local ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", c.Env)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "admin@isintu.local", c.DevRootAdminEmail)
	assert.Equal(t, "8375", c.Port)
	assert.Equal(t, 15, c.S3URLTTLMinutes)
	assert.Equal(t, "0 3 * * *", c.NotificationCleanupCron)
	assert.False(t, c.IsProduction())
}
