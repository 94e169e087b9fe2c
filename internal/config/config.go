package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultJWTExpiresIn = "24h"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "unibox"
	DefaultPGSSLMode    = "disable"

	DefaultGraphBaseURL    = "https://graph.facebook.com/v18.0"
	DefaultTelegramBaseURL = "https://api.telegram.org"
	DefaultSendTimeoutSecs = 10
	DefaultSyncSchedule    = "@every 5m"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Mail      MailConfig      `toml:"mail"`
	Sync      SyncConfig      `toml:"sync"`
	Platforms PlatformsConfig `toml:"platforms"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

type MailConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

type SyncConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
}

// PlatformsConfig carries the per-platform credentials and endpoints.
// Every field is environment-provided via the config file; nothing is hardcoded.
type PlatformsConfig struct {
	SendTimeoutSeconds int            `toml:"send_timeout_seconds"`
	WhatsApp           WhatsAppConfig `toml:"whatsapp"`
	Telegram           TelegramConfig `toml:"telegram"`
	Facebook           MetaAppConfig  `toml:"facebook"`
	Instagram          MetaAppConfig  `toml:"instagram"`
}

type WhatsAppConfig struct {
	BaseURL       string `toml:"base_url"`
	PhoneNumberID string `toml:"phone_number_id"`
	AccessToken   string `toml:"access_token"`
	VerifyToken   string `toml:"verify_token"`
}

type TelegramConfig struct {
	BaseURL     string `toml:"base_url"`
	BotToken    string `toml:"bot_token"`
	VerifyToken string `toml:"verify_token"`
}

// MetaAppConfig configures a Meta Graph messaging surface (Facebook page or
// Instagram account).
type MetaAppConfig struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
	VerifyToken string `toml:"verify_token"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Sync: SyncConfig{
			Schedule: DefaultSyncSchedule,
		},
		Platforms: PlatformsConfig{
			SendTimeoutSeconds: DefaultSendTimeoutSecs,
			WhatsApp:           WhatsAppConfig{BaseURL: DefaultGraphBaseURL},
			Telegram:           TelegramConfig{BaseURL: DefaultTelegramBaseURL},
			Facebook:           MetaAppConfig{BaseURL: DefaultGraphBaseURL},
			Instagram:          MetaAppConfig{BaseURL: DefaultGraphBaseURL},
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DSN builds a pgx connection string from the Postgres settings.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}
