package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiImageModel string

	TelegramToken       string
	AllowedTelegramIDs  []int64
	OperatorTelegramIDs []int64

	WebAddr string
	DBPath  string

	AdminEmail    string
	AdminPassword string
	AccessTTL     time.Duration
	SessionTTL    time.Duration

	LogLevel string
	Debug    bool

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
	AlbumDebounce  time.Duration
}

// Load reads the process environment. A missing GEMINI_API_KEY is not an
// error here; generation reports it per request.
func Load() (Config, error) {
	cfg := Config{
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:    strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion: strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiImageModel: strings.TrimSpace(getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")),

		TelegramToken:       strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		AllowedTelegramIDs:  getEnvInt64List("ALLOWED_TELEGRAM_IDS"),
		OperatorTelegramIDs: getEnvInt64List("OPERATOR_TELEGRAM_IDS"),

		WebAddr: strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		DBPath:  strings.TrimSpace(getEnv("DB_PATH", "mascots.db")),

		AdminEmail:    strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", "admin@yumascotes.com"))),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AccessTTL:     time.Duration(getEnvInt("ACCESS_TTL_DAYS", 0)) * 24 * time.Hour,
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_HOURS", 72)) * time.Hour,

		LogLevel: strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:    getEnvBool("DEBUG", false),

		PreferIPv4:     getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 240)) * time.Second,
		MaxConcurrent:  getEnvInt("MAX_CONCURRENT", 4),
		AlbumDebounce:  time.Duration(getEnvInt("ALBUM_DEBOUNCE_MS", 1200)) * time.Millisecond,
	}

	if cfg.AdminEmail == "" {
		return Config{}, errors.New("ADMIN_EMAIL must not be blank")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.AccessTTL < 0 {
		cfg.AccessTTL = 0
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 72 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 240 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}

	return cfg, nil
}

// RequireTelegram is checked by the bot entrypoint only.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level. DEBUG=true forces debug.
func (c Config) SlogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64List(key string) []int64 {
	var out []int64
	for _, raw := range strings.Split(os.Getenv(key), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
