package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	MaxConns    int32
	LogLevel    string
	LogFormat   string

	JWTSecret string
	TokenTTL  time.Duration

	AdminEmail    string
	AdminUsername string
	AdminPassword string

	// TextModel selects the text-generation backend as "provider:model".
	TextModel       string
	ImageModel      string
	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	ImageMaxRetries int
	ImageRetryBase  time.Duration

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	DiscordBotToken  string
	DiscordChannelID string

	// InMemory runs without Postgres; set by `serve --memory`.
	InMemory bool
}

// Load reads the config and validates it.
func Load(envFile string) (*Config, error) {
	c := Read(envFile)
	return c, c.Validate()
}

// Read loads envFile (when present) into the environment and builds the
// config from it without validating. A missing env file is not an error.
func Read(envFile string) *Config {
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	c := &Config{
		Port:        getenv("PORT", "8081"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		MaxConns:    int32(getint("DATABASE_MAX_CONNS", 6)),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "json"),

		JWTSecret: getenv("JWT_SECRET", ""),
		TokenTTL:  getduration("JWT_TTL", 7*24*time.Hour),

		AdminEmail:    getenv("ADMIN_EMAIL", ""),
		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),

		TextModel:       getenv("TEXT_MODEL", "gemini:gemini-2.0-flash"),
		ImageModel:      getenv("IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiAPIKey:    getenv("GEMINI_API_KEY", ""),
		AnthropicAPIKey: getenv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getenv("OPENAI_API_KEY", ""),

		ImageMaxRetries: getint("IMAGE_MAX_RETRIES", 3),
		ImageRetryBase:  getduration("IMAGE_RETRY_BASE_DELAY", 2*time.Second),

		CloudinaryCloudName: getenv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getenv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getenv("CLOUDINARY_API_SECRET", ""),

		DiscordBotToken:  getenv("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID: getenv("DISCORD_CHANNEL_ID", ""),
	}
	return c
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" && !c.InMemory {
		errs = append(errs, errors.New("DATABASE_URL must be set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.AdminEmail != "" && len(c.AdminPassword) < 8 {
		errs = append(errs, errors.New("ADMIN_PASSWORD must be at least 8 characters when ADMIN_EMAIL is set"))
	}
	if c.ImageMaxRetries < 0 {
		errs = append(errs, errors.New("IMAGE_MAX_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}

// DiscordEnabled reports whether admin notifications should be started.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordChannelID != ""
}

// CDNEnabled reports whether image uploads are configured.
func (c *Config) CDNEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
