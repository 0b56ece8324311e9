// Package config loads the service configuration from defaults, an optional
// YAML file and COMMENTNOTIFY_ environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys are separated by a double underscore, for example
// COMMENTNOTIFY_DATABASE__URL.
const EnvPrefix = "COMMENTNOTIFY_"

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	JWT           JWTConfig           `koanf:"jwt"`
	Cookie        CookieConfig        `koanf:"cookie"`
	CORS          CORSConfig          `koanf:"cors"`
	Session       SessionConfig       `koanf:"session"`
	Identity      IdentityConfig      `koanf:"identity"`
	Comments      CommentsConfig      `koanf:"comments"`
	Content       ContentConfig       `koanf:"content"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig holds access token settings.
type JWTConfig struct {
	SecretKey           string        `koanf:"secret_key"`
	AccessTokenDuration time.Duration `koanf:"access_token_duration"`
}

// CookieConfig holds settings shared by all cookies.
type CookieConfig struct {
	Secure bool   `koanf:"secure"`
	Domain string `koanf:"domain"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// SessionConfig holds visitor session settings.
type SessionConfig struct {
	CookieName string        `koanf:"cookie_name"`
	FlagTTL    time.Duration `koanf:"flag_ttl"`
	Redis      RedisConfig   `koanf:"redis"`
}

// RedisConfig selects the Redis session store. An empty Addr keeps
// sessions in process memory.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// IdentityConfig holds user account settings.
type IdentityConfig struct {
	AdminEmails []string `koanf:"admin_emails"`
}

// CommentsConfig holds comment settings.
type CommentsConfig struct {
	RequireModeration bool `koanf:"require_moderation"`
}

// ContentConfig maps content type tags to the tables holding their items.
type ContentConfig struct {
	Types map[string]string `koanf:"types"`
}

// NotificationsConfig holds comment notification settings.
type NotificationsConfig struct {
	Enabled    bool        `koanf:"enabled"`
	BaseURL    string      `koanf:"base_url"`
	AdminEmail string      `koanf:"admin_email"`
	LoginURL   string      `koanf:"login_url"`
	Language   string      `koanf:"language"`
	Email      EmailConfig `koanf:"email"`
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Enabled      bool          `koanf:"enabled"`
	SMTPHost     string        `koanf:"smtp_host"`
	SMTPPort     int           `koanf:"smtp_port"`
	SMTPUser     string        `koanf:"smtp_user"`
	SMTPPassword string        `koanf:"smtp_password"`
	Timeout      time.Duration `koanf:"timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		JWT: JWTConfig{
			AccessTokenDuration: 24 * time.Hour,
		},
		Session: SessionConfig{
			CookieName: "session_id",
			FlagTTL:    10 * time.Minute,
		},
		Content: ContentConfig{
			Types: map[string]string{
				"Page":    "pages",
				"Article": "articles",
			},
		},
		Notifications: NotificationsConfig{
			Enabled:  true,
			Language: "en",
			Email: EmailConfig{
				SMTPPort: 587,
				Timeout:  10 * time.Second,
			},
		},
	}
}

// Load reads configuration. path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey turns COMMENTNOTIFY_SESSION__REDIS__ADDR into session.redis.addr.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks that required settings are present and consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secret_key is required"))
	}
	if c.Session.FlagTTL <= 0 {
		errs = append(errs, errors.New("session.flag_ttl must be positive"))
	}
	if len(c.Content.Types) == 0 {
		errs = append(errs, errors.New("content.types must name at least one content type"))
	}
	for typeName, table := range c.Content.Types {
		if !tableName.MatchString(table) {
			errs = append(errs, fmt.Errorf("content.types.%s: invalid table name %q", typeName, table))
		}
	}

	if c.Notifications.Enabled {
		if c.Notifications.AdminEmail == "" {
			errs = append(errs, errors.New("notifications.admin_email is required when notifications are enabled"))
		}
		if c.Notifications.Email.Enabled && c.Notifications.Email.SMTPHost == "" {
			errs = append(errs, errors.New("notifications.email.smtp_host is required when email is enabled"))
		}
	}

	return errors.Join(errs...)
}
