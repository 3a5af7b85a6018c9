package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/octorelay/octorelay/core/db"
)

type Config struct {
	OTel    OTelConfig
	Discord DiscordConfig
	GitHub  GitHubConfig
	Poller  PollerConfig
	Cursor  CursorConfig
	Redis   RedisConfig
	Stats   StatsConfig
	Env      string
	Port     string
	LogLevel string
	NodeID   int64
	DB       db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type DiscordConfig struct {
	Token         string
	ApplicationID string
	GuildID       string
	ChannelID     string
}

type GitHubConfig struct {
	Token            string
	Username         string
	WebhookSecret    string
	PublicWebhookURL string
}

type PollerConfig struct {
	Interval time.Duration
	PageSize int
}

type CursorBackend string

const (
	CursorBackendFile     CursorBackend = "file"
	CursorBackendRedis    CursorBackend = "redis"
	CursorBackendPostgres CursorBackend = "postgres"
)

type CursorConfig struct {
	Backend CursorBackend
	Path    string
}

type RedisConfig struct {
	URL       string
	CursorKey string
}

type StatsConfig struct {
	// Empty disables the daily stats post.
	Schedule string
}

// Load loads configuration from environment variables.
// In development it also reads a local .env file when present.
func Load() (Config, error) {
	if getEnv("RELAY_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:      getEnv("RELAY_ENV", "development"),
		Port:     getEnv("PORT", "3000"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		NodeID:   int64(getEnvInt("NODE_ID", 1)),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 4),
			MinConns: getEnvInt32("DB_MIN_CONNS", 1),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "octorelay"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Discord: DiscordConfig{
			Token:         getEnv("DISCORD_TOKEN", ""),
			ApplicationID: getEnv("DISCORD_APPLICATION_ID", getEnv("CLIENT_ID", "")),
			GuildID:       getEnv("DISCORD_GUILD_ID", getEnv("GUILD_ID", "")),
			ChannelID:     getEnv("LOG_CHANNEL_ID", ""),
		},
		GitHub: GitHubConfig{
			Token:            getEnv("GITHUB_TOKEN", ""),
			Username:         getEnv("GITHUB_USERNAME", ""),
			WebhookSecret:    getEnv("GITHUB_WEBHOOK_SECRET", ""),
			PublicWebhookURL: getEnv("PUBLIC_WEBHOOK_URL", ""),
		},
		Poller: PollerConfig{
			Interval: getEnvDuration("POLL_INTERVAL", 60*time.Second),
			PageSize: getEnvInt("POLL_PAGE_SIZE", 30),
		},
		Cursor: CursorConfig{
			Backend: CursorBackend(getEnv("CURSOR_BACKEND", string(CursorBackendFile))),
			Path:    getEnv("CURSOR_PATH", "last_event.json"),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
			CursorKey: getEnv("REDIS_CURSOR_KEY", "octorelay:cursor"),
		},
		Stats: StatsConfig{
			Schedule: getEnv("STATS_CRON", "0 10 * * *"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.Discord.ChannelID == "" {
		return fmt.Errorf("LOG_CHANNEL_ID is required")
	}
	if c.GitHub.Username == "" {
		return fmt.Errorf("GITHUB_USERNAME is required")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("NODE_ID must be between 0 and 1023, got %d", c.NodeID)
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.Poller.Interval)
	}
	if c.Poller.PageSize <= 0 || c.Poller.PageSize > 100 {
		return fmt.Errorf("POLL_PAGE_SIZE must be between 1 and 100, got %d", c.Poller.PageSize)
	}

	switch c.Cursor.Backend {
	case CursorBackendFile:
		if c.Cursor.Path == "" {
			return fmt.Errorf("CURSOR_PATH is required for the file cursor backend")
		}
	case CursorBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis cursor backend")
		}
	case CursorBackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres cursor backend")
		}
	default:
		return fmt.Errorf("unknown CURSOR_BACKEND %q", c.Cursor.Backend)
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c StatsConfig) Enabled() bool {
	return c.Schedule != ""
}

// WebhookURL is the address GitHub should deliver to for hooks created by the bot.
func (c GitHubConfig) WebhookURL() string {
	if c.PublicWebhookURL == "" {
		return ""
	}
	return c.PublicWebhookURL + "/github-webhook"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") and bare millisecond counts ("60000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
