package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = ":8080"
	DefaultPollTimeout      = 30
	DefaultPGHost           = "127.0.0.1"
	DefaultPGPort           = 5432
	DefaultPGUser           = "postgres"
	DefaultPGDatabase       = "darsbot"
	DefaultPGSSLMode        = "disable"
	DefaultMediaRoot        = "media"
	DefaultMaxVideoSeconds  = 60
	DefaultMaxVideoBytes    = 20 * 1024 * 1024
	DefaultMaxDocumentBytes = 20 * 1024 * 1024
	DefaultDigestSchedule   = "0 18 * * *"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Telegram TelegramConfig `toml:"telegram"`
	Postgres PostgresConfig `toml:"postgres"`
	Media    MediaConfig    `toml:"media"`
	Digest   DigestConfig   `toml:"digest"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type TelegramConfig struct {
	// Token may also be supplied via TELEGRAM_BOT_TOKEN.
	Token              string `toml:"token" validate:"required"`
	PollTimeoutSeconds int    `toml:"poll_timeout_seconds" validate:"gt=0"`
}

type PostgresConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"gt=0"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Database string `toml:"database" validate:"required"`
	SSLMode  string `toml:"sslmode"`
}

// DSN returns the postgres connection string for this configuration.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type MediaConfig struct {
	// Root is the content storage area; rows record paths relative to it.
	Root             string `toml:"root" validate:"required"`
	MaxVideoSeconds  int    `toml:"max_video_seconds" validate:"gt=0"`
	MaxVideoBytes    int64  `toml:"max_video_bytes" validate:"gt=0"`
	MaxDocumentBytes int64  `toml:"max_document_bytes" validate:"gt=0"`
}

type DigestConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
}

// Load reads the TOML config at path (DefaultConfigPath when empty), applies
// defaults, and validates the result. A missing file is not an error as long
// as the required values arrive via environment.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Telegram: TelegramConfig{
			PollTimeoutSeconds: DefaultPollTimeout,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Media: MediaConfig{
			Root:             DefaultMediaRoot,
			MaxVideoSeconds:  DefaultMaxVideoSeconds,
			MaxVideoBytes:    DefaultMaxVideoBytes,
			MaxDocumentBytes: DefaultMaxDocumentBytes,
		},
		Digest: DigestConfig{
			Schedule: DefaultDigestSchedule,
		},
	}
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
