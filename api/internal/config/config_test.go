package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "GEMINI_API_KEY", "GEMINI_MODEL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "DEFAULT_ENGINE", "ANALYZE_TIMEOUT_SEC",
		"DISPLAY_MAX_WIDTH", "DISPLAY_MAX_HEIGHT", "OVERLAY_RADIUS_SCALE",
		"TELEGRAM_BOT_TOKEN", "WEBHOOK_URL", "DATABASE_URL", "CACHE_MAX_AGE_HOURS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8000", cfg.Port)
	require.Equal(t, "gemini-3-pro-preview", cfg.GeminiModel)
	require.Equal(t, "gpt-4o", cfg.OpenAIModel)
	require.Equal(t, "gemini", cfg.DefaultEngine)
	require.Equal(t, 180*time.Second, cfg.AnalyzeTimeout)
	require.Equal(t, 0, cfg.DisplayMaxWidth)
	require.Equal(t, 600, cfg.DisplayMaxHeight)
	require.Equal(t, 2.0, cfg.RadiusScale)
	require.Equal(t, 24*time.Hour, cfg.CacheMaxAge)
	require.False(t, cfg.Development())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("DEFAULT_ENGINE", "GPT")
	t.Setenv("APP_ENV", "development")
	t.Setenv("ANALYZE_TIMEOUT_SEC", "30")
	t.Setenv("DISPLAY_MAX_WIDTH", "800")
	t.Setenv("OVERLAY_RADIUS_SCALE", "1.5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "gpt", cfg.DefaultEngine)
	require.True(t, cfg.Development())
	require.Equal(t, 30*time.Second, cfg.AnalyzeTimeout)
	require.Equal(t, 800, cfg.DisplayMaxWidth)
	require.Equal(t, 1.5, cfg.RadiusScale)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no keys", map[string]string{}},
		{"bad engine", map[string]string{"GEMINI_API_KEY": "k", "DEFAULT_ENGINE": "claude"}},
		{"bad int", map[string]string{"GEMINI_API_KEY": "k", "DISPLAY_MAX_HEIGHT": "tall"}},
		{"negative int", map[string]string{"GEMINI_API_KEY": "k", "CACHE_MAX_AGE_HOURS": "-1"}},
		{"zero scale", map[string]string{"GEMINI_API_KEY": "k", "OVERLAY_RADIUS_SCALE": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadBot_RequiresToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	_, err := LoadBot()
	require.EqualError(t, err, "missing required env TELEGRAM_BOT_TOKEN")

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	cfg, err := LoadBot()
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.TelegramBotToken)
}
