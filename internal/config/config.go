package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Env         string `yaml:"env"` // "development" or "production"
	FrontendURL string `yaml:"frontend_url"`
}

type EmailConfig struct {
	Provider       string `yaml:"provider"` // "smtp" or "sendgrid"
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
	SMTPUser       string `yaml:"smtp_user"`
	SMTPPassword   string `yaml:"smtp_password"`
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`
	App      AppConfig      `yaml:"app"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// Load reads the YAML config at path, then applies environment overrides.
// A missing file is not fatal: everything can come from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	overrideString(&cfg.App.Env, "APP_ENV")
	overrideString(&cfg.App.FrontendURL, "FRONTEND_URL")
	overrideString(&cfg.Database.DSN, "DATABASE_URL")
	overrideString(&cfg.JWT.Secret, "JWT_SECRET")
	overrideString(&cfg.Email.Provider, "EMAIL_PROVIDER")
	overrideString(&cfg.Email.SMTPPassword, "SMTP_PASSWORD")
	overrideString(&cfg.Email.SendGridAPIKey, "SENDGRID_API_KEY")
	overrideString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "smtp"
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
