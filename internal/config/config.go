// Package config loads server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Port   int    `env:"PORT"    envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/smart-reminder.db"`

	// The private key is only needed by processes that issue credentials;
	// the public key defaults to the one derived from it.
	JWTPrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH" envDefault:"keys/private.pem"`
	JWTPublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`

	FacebookClientID     string        `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string        `env:"FACEBOOK_CLIENT_SECRET"`
	FacebookCallbackURL  string        `env:"FACEBOOK_CALLBACK_URL"`
	FacebookGraphURL     string        `env:"FACEBOOK_GRAPH_URL" envDefault:"https://graph.facebook.com"`
	ProviderTimeout      time.Duration `env:"PROVIDER_TIMEOUT"   envDefault:"5s"`

	AuthExemptPaths []string `env:"AUTH_EXEMPT_PATHS" envSeparator:"," envDefault:"/login,/auth/facebook,/auth/facebook/callback,/swagger.json,/api-docs/*,/healthz,/metrics"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the process environment. Variables
// missing from it are taken from .env in the working directory, if present.
func Load() (Config, error) {
	return LoadWithDotEnv(".env")
}

// LoadWithDotEnv reads the configuration from the process environment on
// top of the given dotenv files. Later files override earlier ones; the
// process environment overrides all of them. Missing files are skipped.
func LoadWithDotEnv(files ...string) (Config, error) {
	environ := make(map[string]string)
	for _, file := range files {
		vars, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", file, err)
		}
		maps.Copy(environ, vars)
	}
	maps.Copy(environ, env.ToMap(os.Environ()))
	return LoadFrom(environ)
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.FacebookCallbackURL == "" {
		cfg.FacebookCallbackURL = fmt.Sprintf("http://localhost:%d/auth/facebook/callback", cfg.Port)
	}
	for i, p := range cfg.AuthExemptPaths {
		cfg.AuthExemptPaths[i] = strings.TrimSpace(p)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if c.JWTPrivateKeyPath == "" && c.JWTPublicKeyPath == "" {
		errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH or JWT_PUBLIC_KEY_PATH is required"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// WebLoginEnabled reports whether the Facebook redirect flow can run.
// POST /login with a client-side access token works without it.
func (c Config) WebLoginEnabled() bool {
	return c.FacebookClientID != "" && c.FacebookClientSecret != ""
}

// SlogLevel parses LOG_LEVEL.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
