package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "DATABASE_URL=postgres://u:p@localhost:5432/policygen\n" +
		"JWT_SECRET=s3cret\n" +
		"IMAGE_RETRY_BASE_DELAY=250ms\n" +
		"DATABASE_MAX_CONNS=12\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// godotenv never overrides variables already present, so clear them
	// and let t.Setenv restore the originals afterwards.
	for _, k := range []string{"DATABASE_URL", "JWT_SECRET", "IMAGE_RETRY_BASE_DELAY", "DATABASE_MAX_CONNS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	c, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/policygen", c.DatabaseURL)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, 250*time.Millisecond, c.ImageRetryBase)
	assert.Equal(t, int32(12), c.MaxConns)
	assert.Equal(t, 3, c.ImageMaxRetries)
	assert.Equal(t, "gemini:gemini-2.0-flash", c.TextModel)
}

func TestValidate(t *testing.T) {
	c := &Config{AdminEmail: "admin@example.com", AdminPassword: "short"}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL must be set")
	assert.Contains(t, err.Error(), "JWT_SECRET must be set")
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")

	c = &Config{DatabaseURL: "postgres://x", JWTSecret: "k"}
	assert.NoError(t, c.Validate())
}

func TestFeatureSwitches(t *testing.T) {
	c := &Config{DiscordBotToken: "tok"}
	assert.False(t, c.DiscordEnabled())
	c.DiscordChannelID = "123"
	assert.True(t, c.DiscordEnabled())

	assert.False(t, c.CDNEnabled())
	c.CloudinaryCloudName, c.CloudinaryAPIKey, c.CloudinaryAPISecret = "demo", "key", "secret"
	assert.True(t, c.CDNEnabled())
}

func TestValidateInMemory(t *testing.T) {
	c := &Config{JWTSecret: "k", InMemory: true}
	assert.NoError(t, c.Validate())
}
