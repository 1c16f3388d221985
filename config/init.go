package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	cron_config "github.com/customeros/maildigest/internal/cron/config"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/tracing"
)

type Config struct {
	AppConfig      *AppConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
	OpenAIConfig   *OpenAIConfig
	NotionConfig   *NotionConfig
	MailConfig     *MailConfig
	GmailConfig    *GmailConfig
	PollerConfig   *cron_config.Config
	DatabaseConfig *DatabaseConfig
}

func newConfig() *Config {
	return &Config{
		AppConfig:      &AppConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
		OpenAIConfig:   &OpenAIConfig{},
		NotionConfig:   &NotionConfig{},
		MailConfig:     &MailConfig{},
		GmailConfig:    &GmailConfig{},
		PollerConfig:   &cron_config.Config{},
		DatabaseConfig: &DatabaseConfig{},
	}
}

func InitConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	return LoadFromEnv()
}

// LoadFromEnv parses the process environment without reading .env.
func LoadFromEnv() (*Config, error) {
	config := newConfig()
	if err := env.Parse(config); err != nil {
		return nil, errors.Wrap(err, "error loading maildigest config")
	}
	return config, nil
}

// Secrets lists configured credentials that must never appear in responses.
func (c *Config) Secrets() []string {
	return []string{
		c.OpenAIConfig.ApiKey,
		c.NotionConfig.ApiKey,
		c.MailConfig.Password,
		c.AppConfig.APIKey,
		c.DatabaseConfig.Password,
	}
}
