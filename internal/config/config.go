package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAddr            = ":5000"
	DefaultStoreDriver     = "sqlite"
	DefaultDatabaseURL     = "todos.db"
	DefaultDataDir         = "."
	DefaultDigestInterval  = 24 * time.Hour
	DefaultShutdownTimeout = 10 * time.Second
	DefaultCORSOrigin      = "*"
)

var storeDrivers = map[string]bool{
	"sqlite":      true,
	"sqlite-pure": true,
	"file":        true,
	"memory":      true,
}

// Config keeps runtime settings for the service.
type Config struct {
	Addr            string   `toml:"addr"`
	StoreDriver     string   `toml:"store_driver"`
	DatabaseURL     string   `toml:"database_url"`
	DataDir         string   `toml:"data_dir"`
	TelegramToken   string   `toml:"telegram_token"`
	TelegramChatID  int64    `toml:"telegram_chat_id"`
	DigestInterval  Duration `toml:"digest_interval"`
	DigestAt        string   `toml:"digest_at"` // HH:MM, overrides DigestInterval
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	CORSOrigin      string   `toml:"cors_origin"`
}

// Duration decodes TOML strings such as "90m" or "12h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// BotEnabled reports whether a Telegram token was configured.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// Load builds the configuration from, in increasing priority: defaults, the
// TOML file at path (or $TODO_CONFIG when path is empty), environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("TODO_CONFIG"))
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := loadFromEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Addr:            DefaultAddr,
		StoreDriver:     DefaultStoreDriver,
		DatabaseURL:     DefaultDatabaseURL,
		DataDir:         DefaultDataDir,
		DigestInterval:  Duration{DefaultDigestInterval},
		ShutdownTimeout: Duration{DefaultShutdownTimeout},
		CORSOrigin:      DefaultCORSOrigin,
	}
}

func loadFromEnv(cfg *Config) error {
	setString(&cfg.Addr, "TODO_ADDR")
	setString(&cfg.StoreDriver, "TODO_STORE_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DataDir, "TODO_DATA_DIR")
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.DigestAt, "DIGEST_AT")
	setString(&cfg.CORSOrigin, "TODO_CORS_ORIGIN")

	if raw := env("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	if raw := env("DIGEST_INTERVAL_HOURS"); raw != "" {
		hours, err := parseHours(raw)
		if err != nil {
			return fmt.Errorf("DIGEST_INTERVAL_HOURS: %w", err)
		}
		cfg.DigestInterval = Duration{hours}
	}
	if raw := env("TODO_SHUTDOWN_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("TODO_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = Duration{timeout}
	}
	return nil
}

// Validate checks that the settings can be used together.
func (c Config) Validate() error {
	if !storeDrivers[c.StoreDriver] {
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.TelegramChatID != 0 && c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is set but TELEGRAM_TOKEN is empty")
	}
	if c.DigestInterval.Duration < 0 {
		return fmt.Errorf("digest interval must not be negative")
	}
	if c.DigestAt != "" {
		if _, err := time.Parse("15:04", c.DigestAt); err != nil {
			return fmt.Errorf("digest_at %q, expected HH:MM", c.DigestAt)
		}
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func parseHours(raw string) (time.Duration, error) {
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if hours < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return time.Duration(hours * float64(time.Hour)), nil
}
