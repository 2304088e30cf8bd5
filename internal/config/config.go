// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads userauth settings from a YAML file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/userauth/internal/xdg"
)

// defaultSQLitePath places the database under the XDG data directory, or the
// working directory when HOME is unset.
func defaultSQLitePath() string {
	if p, err := xdg.SQLitePath(); err == nil {
		return p
	}
	return "userauth.db"
}

// EnvPrefix prefixes environment variables that map onto config keys:
// USERAUTH_STORAGE_DRIVER sets storage.driver.
const EnvPrefix = "USERAUTH_"

// envAliases map unprefixed environment variables onto config keys.
var envAliases = map[string]string{
	"SESSION_NAME": "session.cookie_name",
	"AUTH_TYPE":    "auth.type",
	"DATABASE_URL": "storage.database_url",
	"REDIS_ADDR":   "redis.addr",
}

// DefaultExcludedPaths are exempt from authentication unless configured otherwise.
var DefaultExcludedPaths = []string{
	"/api/v1/status/",
	"/api/v1/unauthorized/",
	"/api/v1/forbidden/",
	"/api/v1/auth_session/login/",
}

// Config is the full userauth configuration.
type Config struct {
	Auth    AuthConfig    `koanf:"auth" yaml:"auth"`
	Session SessionConfig `koanf:"session" yaml:"session"`
	Storage StorageConfig `koanf:"storage" yaml:"storage"`
	Redis   RedisConfig   `koanf:"redis" yaml:"redis"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	HTTP    HTTPConfig    `koanf:"http" yaml:"http"`
	Metrics MetricsConfig `koanf:"metrics" yaml:"metrics"`
}

// AuthConfig selects the authentication scheme guarding the API.
type AuthConfig struct {
	Type          string   `koanf:"type" yaml:"type"`
	ExcludedPaths []string `koanf:"excluded_paths" yaml:"excluded_paths"`
}

// SessionConfig controls session cookies and where sessions live.
type SessionConfig struct {
	CookieName string        `koanf:"cookie_name" yaml:"cookie_name"`
	Store      string        `koanf:"store" yaml:"store"`
	TTL        time.Duration `koanf:"ttl" yaml:"ttl"`
}

// StorageConfig selects the user table backend.
type StorageConfig struct {
	Driver      string `koanf:"driver" yaml:"driver"`
	DatabaseURL string `koanf:"database_url" yaml:"database_url"`
	SQLitePath  string `koanf:"sqlite_path" yaml:"sqlite_path"`
}

// RedisConfig is used when session.store is "redis".
type RedisConfig struct {
	Addr     string `koanf:"addr" yaml:"addr"`
	Password string `koanf:"password" yaml:"password"`
	DB       int    `koanf:"db" yaml:"db"`
}

// LogConfig controls log output and PII redaction.
type LogConfig struct {
	Format    string   `koanf:"format" yaml:"format"`
	PIIFields []string `koanf:"pii_fields" yaml:"pii_fields"`
	Redaction string   `koanf:"redaction" yaml:"redaction"`
	Separator string   `koanf:"separator" yaml:"separator"`
}

// HTTPConfig is the API listener. Setting TLSCert and TLSKey, or
// TLSSelfSigned, serves HTTPS and marks session cookies Secure.
type HTTPConfig struct {
	Addr          string `koanf:"addr" yaml:"addr"`
	TLSCert       string `koanf:"tls_cert" yaml:"tls_cert"`
	TLSKey        string `koanf:"tls_key" yaml:"tls_key"`
	TLSSelfSigned bool   `koanf:"tls_self_signed" yaml:"tls_self_signed"`
}

// TLSEnabled reports whether the listener serves HTTPS.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSSelfSigned || c.TLSCert != ""
}

// MetricsConfig is the metrics and health listener. An empty address disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// RegisterFlags adds a flag per config key to fs. Flag defaults are the
// configuration defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("auth.type", "none", "authentication scheme (none, basic, session)")
	fs.StringSlice("auth.excluded_paths", DefaultExcludedPaths, "paths exempt from authentication; a trailing * exempts a subtree")

	fs.String("session.cookie_name", "session_id", "session cookie name (empty disables cookie lookup)")
	fs.String("session.store", "table", "session store (table, memory, redis)")
	fs.Duration("session.ttl", 0, "session lifetime in the redis store (0 never expires)")

	fs.String("storage.driver", "memory", "user table backend (memory, postgres, sqlite)")
	fs.String("storage.database_url", "", "PostgreSQL connection URL")
	fs.String("storage.sqlite_path", defaultSQLitePath(), "SQLite database file")

	fs.String("redis.addr", "localhost:6379", "redis address")
	fs.String("redis.password", "", "redis password")
	fs.Int("redis.db", 0, "redis database number")

	fs.String("log.format", "json", "log format (json, text)")
	fs.StringSlice("log.pii_fields", []string{"name", "email", "phone", "ssn", "password"}, "field names redacted from logs")
	fs.String("log.redaction", "***", "replacement for redacted values")
	fs.String("log.separator", ";", "field separator in log lines")

	fs.String("http.addr", ":8080", "API listen address")
	fs.String("http.tls_cert", "", "PEM certificate file for HTTPS")
	fs.String("http.tls_key", "", "PEM private key file for HTTPS")
	fs.Bool("http.tls_self_signed", false, "serve HTTPS with a self-signed certificate kept in the data directory")
	fs.String("metrics.addr", ":9100", "metrics and health listen address (empty disables)")
}

// Load reads path (if non-empty), then the environment, then fs. Flags
// that were not set on the command line supply defaults for keys no other
// source provided.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				With("operation", "read config file").
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read environment").Wrap(err)
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode config").Wrap(err)
	}
	return &cfg, nil
}

// envKey maps an environment variable name to a config key, or "" to skip it.
func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}
	rest, ok := strings.CutPrefix(name, EnvPrefix)
	if !ok || rest == "" {
		return ""
	}
	section, key, ok := strings.Cut(strings.ToLower(rest), "_")
	if !ok || key == "" {
		return ""
	}
	return section + "." + key
}

// Validate checks enumerations and that each choice has what it needs.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	switch c.Auth.Type {
	case "", "none", "basic", "session":
	default:
		return invalid("auth.type", "unknown auth type %q", c.Auth.Type)
	}
	if c.Auth.Type == "session" && c.Session.CookieName == "" {
		return invalid("session.cookie_name", "session auth requires a cookie name")
	}

	switch c.Session.Store {
	case "table", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return invalid("redis.addr", "redis session store requires an address")
		}
	default:
		return invalid("session.store", "unknown session store %q", c.Session.Store)
	}
	if c.Session.TTL < 0 {
		return invalid("session.ttl", "session ttl cannot be negative")
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return invalid("storage.database_url", "postgres driver requires a database URL")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return invalid("storage.sqlite_path", "sqlite driver requires a file path")
		}
	default:
		return invalid("storage.driver", "unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Log.Format {
	case "", "json", "text":
	default:
		return invalid("log.format", "unknown log format %q", c.Log.Format)
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "listen address is required")
	}
	if (c.HTTP.TLSCert == "") != (c.HTTP.TLSKey == "") {
		return invalid("http.tls_key", "tls_cert and tls_key must be set together")
	}
	if c.HTTP.TLSSelfSigned && c.HTTP.TLSCert != "" {
		return invalid("http.tls_self_signed", "tls_self_signed conflicts with tls_cert")
	}
	return nil
}
