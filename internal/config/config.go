// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file and environment variables.
type Config struct {
	Port                  string `mapstructure:"PORT"`
	Env                   string `mapstructure:"APP_ENV"`
	AdminToken            string `mapstructure:"ADMIN_TOKEN"`
	AuthSecret            string `mapstructure:"AUTH_SECRET"`
	SessionTTLHours       int    `mapstructure:"SESSION_TTL_HOURS"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	DataDir               string `mapstructure:"DATA_DIR"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	DefaultCountry        string `mapstructure:"DEFAULT_COUNTRY"`
	DefaultLang           string `mapstructure:"DEFAULT_LANG"`
	CORSOrigins           string `mapstructure:"CORS_ORIGINS"`
	AllowDevOTP           bool   `mapstructure:"ALLOW_DEV_OTP"`
	TelegramBotToken      string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramModChatID     string `mapstructure:"TELEGRAM_MOD_CHAT_ID"`
	TelegramWebhookSecret string `mapstructure:"TELEGRAM_WEBHOOK_SECRET"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The config file is optional; environment variables alone are enough.
	_ = viper.ReadInConfig()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ADMIN_TOKEN", "change-me-admin-token")
	viper.SetDefault("AUTH_SECRET", "change-me-auth-secret")
	viper.SetDefault("SESSION_TTL_HOURS", 24*7)
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("DEFAULT_COUNTRY", "global")
	viper.SetDefault("DEFAULT_LANG", "en")
	viper.SetDefault("CORS_ORIGINS", "")
	viper.SetDefault("ALLOW_DEV_OTP", true)
	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("TELEGRAM_MOD_CHAT_ID", "")
	viper.SetDefault("TELEGRAM_WEBHOOK_SECRET", "")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DefaultCountry = strings.ToLower(config.DefaultCountry)
	config.DefaultLang = strings.ToLower(config.DefaultLang)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the app runs with production strictness.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// UsePostgres reports whether the Postgres storage backend is selected.
// Presence of a database connection string is the only switch.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.AuthSecret == "" {
		return errors.New("AUTH_SECRET is required")
	}
	if c.SessionTTLHours <= 0 {
		return errors.New("SESSION_TTL_HOURS must be positive")
	}

	if c.IsProduction() {
		if c.AuthSecret == "change-me-auth-secret" {
			return errors.New("AUTH_SECRET must be changed from the default value in production")
		}
		if len(c.AuthSecret) < 32 {
			return errors.New("AUTH_SECRET must be at least 32 characters in production")
		}
		if c.AdminToken == "change-me-admin-token" || c.AdminToken == "" {
			return errors.New("a strong ADMIN_TOKEN is required in production")
		}
		if c.AllowDevOTP {
			log.Println("WARNING: ALLOW_DEV_OTP is enabled in production. Verification codes will be returned in API responses.")
		}
		if c.CORSOrigins == "*" {
			log.Println("WARNING: CORS_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else {
		if len(c.AuthSecret) < 32 {
			log.Println("WARNING: AUTH_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
	}

	return nil
}
