// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSessionSecret = "friendfeed-dev-secret-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port                  string  `mapstructure:"PORT"`
	Env                   string  `mapstructure:"APP_ENV"`
	BackendURL            string  `mapstructure:"BACKEND_URL"`
	BackendTimeoutSeconds int     `mapstructure:"BACKEND_TIMEOUT_SECONDS"`
	BackendSessionCookie  string  `mapstructure:"BACKEND_SESSION_COOKIE"`
	RedisURL              string  `mapstructure:"REDIS_URL"`
	SessionSecret         string  `mapstructure:"SESSION_SECRET"`
	SessionTTLHours       int     `mapstructure:"SESSION_TTL_HOURS"`
	DisplayTimezone       string  `mapstructure:"DISPLAY_TIMEZONE"`
	ToastTTLMillis        int     `mapstructure:"TOAST_TTL_MS"`
	RequestCardDelayMs    int     `mapstructure:"REQUEST_CARD_DELAY_MS"`
	FadeMillis            int     `mapstructure:"FADE_MS"`
	FeatureFlags          string  `mapstructure:"FEATURE_FLAGS"`
	AllowedOrigins        string  `mapstructure:"ALLOWED_ORIGINS"`
	TracingEnabled        bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter       string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint          string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio    float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.Env = strings.ToLower(strings.TrimSpace(config.Env))
	config.BackendURL = strings.TrimRight(strings.TrimSpace(config.BackendURL), "/")

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8390")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("BACKEND_URL", "http://localhost:8080")
	viper.SetDefault("BACKEND_TIMEOUT_SECONDS", 10)
	viper.SetDefault("BACKEND_SESSION_COOKIE", "session_id")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("SESSION_SECRET", defaultSessionSecret)
	viper.SetDefault("SESSION_TTL_HOURS", 24)
	viper.SetDefault("DISPLAY_TIMEZONE", "Africa/Cairo")
	viper.SetDefault("TOAST_TTL_MS", 5000)
	viper.SetDefault("REQUEST_CARD_DELAY_MS", 1000)
	viper.SetDefault("FADE_MS", 300)
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:8390,http://127.0.0.1:8390")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL %q is not an absolute URL", c.BackendURL)
	}
	if c.BackendSessionCookie == "" {
		return errors.New("BACKEND_SESSION_COOKIE is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE %q: %w", c.DisplayTimezone, err)
	}
	if c.ToastTTLMillis <= 0 {
		return errors.New("TOAST_TTL_MS must be positive")
	}
	if c.RequestCardDelayMs < 0 || c.FadeMillis < 0 {
		return errors.New("REQUEST_CARD_DELAY_MS and FADE_MS must not be negative")
	}

	if c.IsProduction() {
		if c.SessionSecret == defaultSessionSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.SessionSecret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
		if u.Scheme != "https" {
			log.Println("WARNING: BACKEND_URL is not https in production.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.SessionSecret) < 32 {
		log.Println("WARNING: SESSION_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// IsProduction reports whether the app runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Location resolves DISPLAY_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	name := c.DisplayTimezone
	if name == "" {
		name = "Africa/Cairo"
	}
	return time.LoadLocation(name)
}

// BackendTimeout is the per-call timeout for backend API requests.
func (c *Config) BackendTimeout() time.Duration {
	if c.BackendTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

// SessionTTL is how long an idle session view-model is kept.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// ToastTTL is how long a toast stays visible.
func (c *Config) ToastTTL() time.Duration {
	return time.Duration(c.ToastTTLMillis) * time.Millisecond
}

// RequestCardDelay is how long a resolved request card stays on screen before it fades.
func (c *Config) RequestCardDelay() time.Duration {
	return time.Duration(c.RequestCardDelayMs) * time.Millisecond
}

// Fade is the fade-out duration applied to removed cards.
func (c *Config) Fade() time.Duration {
	return time.Duration(c.FadeMillis) * time.Millisecond
}
