package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Бэкенды хранилища сессий
const (
	SessionBackendSupabase = "supabase"
	SessionBackendPostgres = "postgres"
)

type Config struct {
	TelegramToken string
	APIBaseURL    string
	APITimeout    time.Duration

	FlowIdleTimeout   time.Duration
	FlowSweepInterval time.Duration
	QuoteTTL          time.Duration

	SessionBackend  string
	SupabaseURL     string
	SupabaseKey     string
	DBSource        string
	SessionCacheTTL time.Duration

	HTTPPort string

	// WebhookSecret - secret_token, переданный в setWebhook. Без него
	// webhook-запросы не принимаются.
	WebhookSecret string
}

// LoadConfig читает .env (если он есть) и переменные окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		APIBaseURL:     strings.TrimRight(os.Getenv("COPPERX_API_BASE_URL"), "/"),
		SessionBackend: getEnv("SESSION_BACKEND", SessionBackendSupabase),
		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),
		DBSource:       os.Getenv("DB_SOURCE"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
	}

	durations := []struct {
		name  string
		def   time.Duration
		field *time.Duration
	}{
		{"API_TIMEOUT", 15 * time.Second, &cfg.APITimeout},
		{"FLOW_IDLE_TIMEOUT", 30 * time.Minute, &cfg.FlowIdleTimeout},
		{"FLOW_SWEEP_INTERVAL", time.Minute, &cfg.FlowSweepInterval},
		{"QUOTE_TTL", 5 * time.Minute, &cfg.QuoteTTL},
		{"SESSION_CACHE_TTL", time.Minute, &cfg.SessionCacheTTL},
	}
	for _, d := range durations {
		v, err := getDuration(d.name, d.def)
		if err != nil {
			return nil, err
		}
		*d.field = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN environment variable is required")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("COPPERX_API_BASE_URL environment variable is required")
	}

	switch c.SessionBackend {
	case SessionBackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the %s session backend", c.SessionBackend)
		}
	case SessionBackendPostgres:
		if c.DBSource == "" {
			return fmt.Errorf("DB_SOURCE is required for the %s session backend", c.SessionBackend)
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getDuration(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}
