package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"cardgen/internal/models"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	APIKey         string        `validate:"required"`
	APIBaseURL     string        `validate:"required,url"`
	Model          string        `validate:"required"`
	MaxTokens      int           `validate:"gte=1,lte=32768"`
	Temperature    float64       `validate:"gte=0,lte=2"`
	TopP           float64       `validate:"gte=0,lte=1"`
	Port           int           `validate:"gt=0,lt=65536"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
	Env            string        `validate:"oneof=development production"`
	MaxUploadBytes int64         `validate:"gt=0"`
	SessionIdleTTL time.Duration `validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_BASE_URL", "https://api.cerebras.ai/v1")
	v.SetDefault("MODEL", "llama3.1-8b")
	v.SetDefault("MAX_TOKENS", 4000)
	v.SetDefault("TEMPERATURE", 0.2)
	v.SetDefault("TOP_P", 1.0)
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("MAX_UPLOAD_BYTES", 8<<20)
	v.SetDefault("SESSION_IDLE_TTL", "2h")
}

// Load reads configuration from the environment, providing sensible defaults.
// A missing API_KEY is reported as models.ErrConfiguration.
func Load() (Config, error) {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		APIKey:         strings.TrimSpace(v.GetString("API_KEY")),
		APIBaseURL:     v.GetString("API_BASE_URL"),
		Model:          v.GetString("MODEL"),
		MaxTokens:      v.GetInt("MAX_TOKENS"),
		Temperature:    v.GetFloat64("TEMPERATURE"),
		TopP:           v.GetFloat64("TOP_P"),
		Port:           v.GetInt("PORT"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		Env:            strings.ToLower(v.GetString("APP_ENV")),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		SessionIdleTTL: v.GetDuration("SESSION_IDLE_TTL"),
	}

	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("%w: API_KEY not found in environment variables", models.ErrConfiguration)
	}
	if err := validator.New().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			names := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				names = append(names, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return cfg, fmt.Errorf("%w: invalid settings: %s", models.ErrConfiguration, strings.Join(names, ", "))
		}
		return cfg, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
