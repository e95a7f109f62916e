package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendChannel  = "channel"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`

	DiscordToken string   `env:"DISCORD_TOKEN"`
	GuildID      string   `env:"GUILD_ID"`
	AdminIDs     []string `env:"ADMIN_IDS" envSeparator:","`

	// Channels
	DataChannelID     string `env:"DATA_CHANNEL_ID"`
	TemplateChannelID string `env:"TEMPLATE_CHANNEL_ID"`
	WelcomeChannelID  string `env:"WELCOME_CHANNEL_ID"`
	LogChannelID      string `env:"LOG_CHANNEL_ID"`

	// Persistence
	StoreBackend string `env:"STORE_BACKEND" envDefault:"channel"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"./data/nezuko.db"`

	FontPath string `env:"FONT_PATH" envDefault:"njnaruto.ttf"`

	// Timeouts
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"5m"`
	WizardTimeout  time.Duration `env:"WIZARD_TIMEOUT" envDefault:"10m"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" envDefault:"5s"`
	ScanTimeout    time.Duration `env:"SCAN_TIMEOUT" envDefault:"2500ms"`

	// Rate limiting of verification starts (requires Redis)
	VerifyRateLimit  int           `env:"VERIFY_RATE_LIMIT" envDefault:"5"`
	VerifyRateWindow time.Duration `env:"VERIFY_RATE_WINDOW" envDefault:"10m"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"false"`
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the bot process cannot run without.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendChannel:
		if c.DataChannelID == "" {
			return fmt.Errorf("DATA_CHANNEL_ID is required for the channel store")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case BackendSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.IsProduction() {
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required in production")
		}
		if c.WelcomeChannelID == "" || c.LogChannelID == "" {
			return fmt.Errorf("WELCOME_CHANNEL_ID and LOG_CHANNEL_ID are required in production")
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsAdmin reports whether userID is listed in ADMIN_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
