package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	LogLevel    slog.Level
	DatabaseURL string
	RedisURL    string

	GenAI  GenAI
	OAuth  OAuth
	Events Events
}

// GenAI configures the generative model. Vertex AI is used when Project is
// set, the Gemini API with APIKey otherwise.
type GenAI struct {
	Model string
	// Temperature is nil when GENAI_TEMPERATURE is unset.
	Temperature *float32
	APIKey      string
	Project     string
	Location    string
}

// OAuth configures the client used for delegated user access.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateKey     string
}

// Events configures space event subscriptions.
type Events struct {
	PubsubTopic string
}

// Load reads configuration from environment variables, loading a .env file
// first if present. In production, missing required variables are an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		GenAI: GenAI{
			Model:    os.Getenv("GENAI_MODEL"),
			APIKey:   os.Getenv("GENAI_API_KEY"),
			Project:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
			Location: getEnv("GOOGLE_CLOUD_LOCATION", "us-central1"),
		},
		OAuth: OAuth{
			ClientID:     os.Getenv("OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
			StateKey:     os.Getenv("OAUTH_STATE_KEY"),
		},
		Events: Events{
			PubsubTopic: os.Getenv("EVENTS_PUBSUB_TOPIC"),
		},
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if v := os.Getenv("GENAI_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return nil, fmt.Errorf("GENAI_TEMPERATURE: %w", err)
		}
		temp := float32(t)
		cfg.GenAI.Temperature = &temp
	}

	if !cfg.IsDevelopment() {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"DATABASE_URL":        c.DatabaseURL,
		"OAUTH_CLIENT_ID":     c.OAuth.ClientID,
		"OAUTH_CLIENT_SECRET": c.OAuth.ClientSecret,
		"OAUTH_REDIRECT_URL":  c.OAuth.RedirectURL,
		"OAUTH_STATE_KEY":     c.OAuth.StateKey,
		"EVENTS_PUBSUB_TOPIC": c.Events.PubsubTopic,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if c.GenAI.APIKey == "" && c.GenAI.Project == "" {
		missing = append(missing, "GENAI_API_KEY or GOOGLE_CLOUD_PROJECT")
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New("missing required variables: " + strings.Join(missing, ", "))
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
