package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	DefaultEngine string

	AnalyzeTimeout time.Duration

	DisplayMaxWidth  int
	DisplayMaxHeight int
	RadiusScale      float64

	TelegramBotToken string
	WebhookURL       string

	DatabaseURL string
	CacheMaxAge time.Duration
}

// Development turns unknown risk tiers and similar contract slips into
// error-level logs.
func (c *Config) Development() bool {
	return strings.EqualFold(c.AppEnv, "development") || strings.EqualFold(c.AppEnv, "dev")
}

func mustEnv(k string) (string, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return "", errors.Errorf("missing required env %s", k)
	}
	return v, nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) (int, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.Errorf("env %s: want a non-negative integer, got %q", k, v)
	}
	return n, nil
}

func getFloat(k string, def float64) (float64, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, errors.Errorf("env %s: want a positive number, got %q", k, v)
	}
	return f, nil
}

// Load reads the environment after applying .env, if there is one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8000"),
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-3-pro-preview"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		DefaultEngine: strings.ToLower(getEnv("DEFAULT_ENGINE", "gemini")),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
	}
	if cfg.GeminiAPIKey == "" && cfg.OpenAIAPIKey == "" {
		return nil, errors.New("set GEMINI_API_KEY or OPENAI_API_KEY")
	}
	switch cfg.DefaultEngine {
	case "gemini", "gpt", "openai":
	default:
		return nil, errors.Errorf("DEFAULT_ENGINE: unknown engine %q", cfg.DefaultEngine)
	}

	timeoutSec, err := getInt("ANALYZE_TIMEOUT_SEC", 180)
	if err != nil {
		return nil, err
	}
	if timeoutSec == 0 {
		timeoutSec = 180
	}
	cfg.AnalyzeTimeout = time.Duration(timeoutSec) * time.Second

	if cfg.DisplayMaxWidth, err = getInt("DISPLAY_MAX_WIDTH", 0); err != nil {
		return nil, err
	}
	if cfg.DisplayMaxHeight, err = getInt("DISPLAY_MAX_HEIGHT", 600); err != nil {
		return nil, err
	}
	if cfg.RadiusScale, err = getFloat("OVERLAY_RADIUS_SCALE", 2.0); err != nil {
		return nil, err
	}
	hours, err := getInt("CACHE_MAX_AGE_HOURS", 24)
	if err != nil {
		return nil, err
	}
	cfg.CacheMaxAge = time.Duration(hours) * time.Hour
	return cfg, nil
}

// LoadBot is Load plus the bot token check.
func LoadBot() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.TelegramBotToken, err = mustEnv("TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, err
	}
	return cfg, nil
}
