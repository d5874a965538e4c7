package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	AutoMigrate  bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL"`
	GoogleClientID string        `yaml:"google_client_id" env:"GOOGLE_CLIENT_ID"`
}

type EmailConfig struct {
	// Provider is one of "smtp", "sendgrid" or "log".
	Provider       string `yaml:"provider" env:"EMAIL_PROVIDER"`
	SMTPHost       string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser       string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPassword   string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	SendgridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	FromEmail      string `yaml:"from_email" env:"EMAIL_FROM"`
	FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

type NotifyConfig struct {
	Workers        int           `yaml:"workers" env:"NOTIFY_WORKERS"`
	QueueSize      int           `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE"`
	SendTimeout    time.Duration `yaml:"send_timeout" env:"NOTIFY_SEND_TIMEOUT"`
	MaxAttempts    uint          `yaml:"max_attempts" env:"NOTIFY_MAX_ATTEMPTS"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"NOTIFY_INITIAL_BACKOFF"`
}

type Config struct {
	AppName         string         `yaml:"app_name" env:"APP_NAME"`
	LogLevel        string         `yaml:"log_level" env:"LOG_LEVEL"`
	FrontendBaseURL string         `yaml:"frontend_base_url" env:"FRONTEND_BASE_URL"`
	CleanupSchedule string         `yaml:"cleanup_schedule" env:"CLEANUP_SCHEDULE"`
	Server          ServerConfig   `yaml:"server"`
	Database        DatabaseConfig `yaml:"database"`
	Auth            AuthConfig     `yaml:"auth"`
	Email           EmailConfig    `yaml:"email"`
	Telegram        TelegramConfig `yaml:"telegram"`
	Notify          NotifyConfig   `yaml:"notify"`
}

// LoadConfig reads the YAML file at path, then lets environment variables
// (optionally seeded from .env) override individual fields.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployments
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "unistay-api"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.FrontendBaseURL == "" {
		c.FrontendBaseURL = "https://uni-stay-software.vercel.app"
	}
	if c.CleanupSchedule == "" {
		c.CleanupSchedule = "@daily"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Email.Provider == "" {
		c.Email.Provider = "log"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "UniStay"
	}
	if c.Notify.Workers == 0 {
		c.Notify.Workers = 2
	}
	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = 100
	}
	if c.Notify.SendTimeout == 0 {
		c.Notify.SendTimeout = 10 * time.Second
	}
	if c.Notify.MaxAttempts == 0 {
		c.Notify.MaxAttempts = 3
	}
	if c.Notify.InitialBackoff == 0 {
		c.Notify.InitialBackoff = 500 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	switch c.Email.Provider {
	case "log":
	case "smtp":
		if c.Email.SMTPHost == "" || c.Email.FromEmail == "" {
			return errors.New("smtp provider needs smtp_host and from_email")
		}
	case "sendgrid":
		if c.Email.SendgridAPIKey == "" || c.Email.FromEmail == "" {
			return errors.New("sendgrid provider needs sendgrid_api_key and from_email")
		}
	default:
		return fmt.Errorf("unknown email provider %q", c.Email.Provider)
	}
	return nil
}
