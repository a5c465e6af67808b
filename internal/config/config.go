package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	JWTSecret        string `env:"JWT_SECRET,required"`
	JWTRefreshSecret string `env:"JWT_REFRESH_TOKEN_SECRET,required"`

	MailMode     string `env:"MAIL_MODE" envDefault:"log"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"noreply@therapease.example"`
	MailFromName string `env:"MAIL_FROM_NAME" envDefault:"Therapease"`

	ServerBaseURL string `env:"SERVER_BASE_URL" envDefault:"http://localhost:8080"`
	ClientBaseURL string `env:"CLIENT_BASE_URL" envDefault:"http://localhost:3000"`

	MaxSessionsUserPerDay int `env:"MAX_SESSIONS_USER_PER_DAY" envDefault:"2"`
	SeriesLengthDays      int `env:"SESSION_SERIES_LENGTH_DAYS" envDefault:"90"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.MaxSessionsUserPerDay < 1 {
		return nil, fmt.Errorf("MAX_SESSIONS_USER_PER_DAY must be at least 1")
	}
	if cfg.SeriesLengthDays < 1 {
		return nil, fmt.Errorf("SESSION_SERIES_LENGTH_DAYS must be at least 1")
	}
	if cfg.MailMode != "log" && cfg.MailMode != "smtp" {
		return nil, fmt.Errorf("MAIL_MODE must be log or smtp, got %q", cfg.MailMode)
	}

	return cfg, nil
}

// AccessTokenTTL and RefreshTokenTTL govern login tokens, not the
// booking confirmation/cancelation tokens (those expire 24h before
// the session starts).
const (
	AccessTokenTTL  = 5 * time.Minute
	RefreshTokenTTL = time.Hour
)
