package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Plan providers.
const (
	ProviderGemini    = "gemini"
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

// Speech providers.
const (
	SpeechOpenAI = "openai"
	SpeechGoogle = "google"
	SpeechLocal  = "local"
)

// Error reports a required setting that is missing or invalid.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("%s environment variable not set", e.Key)
}

// Config holds the configuration for the application.
type Config struct {
	PlanProvider    string
	PlanModel       string
	GeminiAPIKey    string
	GroqAPIKey      string
	GroqBaseURL     string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string

	SpeechProvider string
	SpeechVoice    string
	SpeechLanguage string
	ImageModel     string

	DatabasePath     string
	Port             string
	ExportSigningKey string
	CacheTTL         time.Duration
	CacheMaxEntries  int
	RequestTimeout   time.Duration

	LogLevel  string
	LogFormat string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// Default returns a Config with every optional value filled in.
func Default() Config {
	return Config{
		PlanProvider:    ProviderGemini,
		SpeechVoice:     "alloy",
		SpeechLanguage:  "en-US",
		ImageModel:      "dall-e-3",
		DatabasePath:    "data/trainify.db",
		Port:            "8080",
		CacheTTL:        24 * time.Hour,
		CacheMaxEntries: 10,
		RequestTimeout:  60 * time.Second,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.PlanProvider, "PLAN_PROVIDER")
	setString(&c.PlanModel, "PLAN_MODEL")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GroqAPIKey, "GROQ_API_KEY")
	setString(&c.GroqBaseURL, "GROQ_BASE_URL")
	setString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.SpeechProvider, "TTS_PROVIDER")
	setString(&c.SpeechVoice, "TTS_VOICE")
	setString(&c.SpeechLanguage, "GOOGLE_TTS_LANGUAGE")
	setString(&c.ImageModel, "IMAGE_MODEL")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.Port, "PORT")
	setString(&c.ExportSigningKey, "EXPORT_SIGNING_KEY")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.TelegramWebhookURL, "TELEGRAM_WEBHOOK_URL")

	if raw := os.Getenv("CACHE_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return &Error{Key: "CACHE_TTL", Reason: "must be a positive duration"}
		}
		c.CacheTTL = d
	}
	if raw := os.Getenv("REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return &Error{Key: "REQUEST_TIMEOUT", Reason: "must be a positive duration"}
		}
		c.RequestTimeout = d
	}
	if raw := os.Getenv("CACHE_MAX_ENTRIES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return &Error{Key: "CACHE_MAX_ENTRIES", Reason: "must be a positive integer"}
		}
		c.CacheMaxEntries = n
	}

	// Telegram Config (Optional for CLI, required for Bot)
	if raw := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); raw != "" {
		ids, err := parseIDs(raw)
		if err != nil {
			return &Error{Key: "TELEGRAM_ALLOWED_USER_IDS", Reason: "must be a comma separated list of user ids"}
		}
		c.TelegramAllowedUserIDs = ids
	}
	if raw := os.Getenv("ADMIN_TELEGRAM_ID"); raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return &Error{Key: "ADMIN_TELEGRAM_ID", Reason: "must be a numeric user id"}
		}
		c.AdminTelegramID = id
	}
	return nil
}

// Validate checks that the credentials needed by the selected providers are present.
func (c *Config) Validate() error {
	c.PlanProvider = strings.ToLower(strings.TrimSpace(c.PlanProvider))
	switch c.PlanProvider {
	case "", ProviderGemini:
		c.PlanProvider = ProviderGemini
		if c.GeminiAPIKey == "" {
			return &Error{Key: "GEMINI_API_KEY"}
		}
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return &Error{Key: "GROQ_API_KEY"}
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return &Error{Key: "ANTHROPIC_API_KEY"}
		}
	default:
		return &Error{Key: "PLAN_PROVIDER", Reason: fmt.Sprintf("has unsupported value %q", c.PlanProvider)}
	}

	c.SpeechProvider = strings.ToLower(strings.TrimSpace(c.SpeechProvider))
	switch c.SpeechProvider {
	case "":
		if c.OpenAIAPIKey != "" {
			c.SpeechProvider = SpeechOpenAI
		} else {
			c.SpeechProvider = SpeechLocal
		}
	case SpeechOpenAI:
		if c.OpenAIAPIKey == "" {
			return &Error{Key: "OPENAI_API_KEY"}
		}
	case SpeechGoogle, SpeechLocal:
	default:
		return &Error{Key: "TTS_PROVIDER", Reason: fmt.Sprintf("has unsupported value %q", c.SpeechProvider)}
	}
	return nil
}

// ImagesEnabled reports whether an image generation backend is configured.
func (c *Config) ImagesEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
