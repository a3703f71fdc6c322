// Package config loads the server configuration.
//
// LOADING ORDER (later wins):
//  1. Defaults()
//  2. An optional YAML file (--config flag or FOODGRAM_CONFIG)
//  3. Environment variables (PORT, DB_PATH, JWT_SECRET, ...)
//
// The result is validated once at the end, so a bad value is reported no
// matter which layer supplied it.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a YAML file.
const EnvConfigPath = "FOODGRAM_CONFIG"

// Config is everything the server needs to start.
type Config struct {
	Port   int    `yaml:"port" validate:"min=1,max=65535"`
	DBPath string `yaml:"db_path" validate:"required"`

	// JWTSecret signs auth tokens. Required for serve, not for the
	// catalog commands.
	JWTSecret     string `yaml:"jwt_secret"`
	SecureCookies bool   `yaml:"secure_cookies"`

	// Media is where uploaded recipe images go. When S3.Endpoint is set the
	// images are written to the bucket instead of MediaDir.
	MediaDir string   `yaml:"media_dir" validate:"required"`
	MediaURL string   `yaml:"media_url" validate:"required,startswith=/"`
	S3       S3Config `yaml:"s3"`

	GitHub GitHubConfig `yaml:"github"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	// LoginRatePerMinute caps login attempts per client IP.
	LoginRatePerMinute int `yaml:"login_rate_per_minute" validate:"min=1"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key" validate:"required_with=Endpoint"`
	SecretKey string `yaml:"secret_key" validate:"required_with=Endpoint"`
	Bucket    string `yaml:"bucket" validate:"required_with=Endpoint"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url" validate:"omitempty,url"`
}

// Enabled reports whether images should go to S3 rather than local disk.
func (c S3Config) Enabled() bool { return c.Endpoint != "" }

type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	CallbackURL  string `yaml:"callback_url" validate:"omitempty,url"`
}

// Enabled reports whether GitHub sign-in routes should be mounted.
func (c GitHubConfig) Enabled() bool { return c.ClientID != "" }

// Defaults returns a configuration that runs locally with no setup apart
// from JWT_SECRET.
func Defaults() Config {
	return Config{
		Port:               8080,
		DBPath:             "data/foodgram.db",
		MediaDir:           "data/media",
		MediaURL:           "/media/",
		LogLevel:           "info",
		LogFormat:          "text",
		LoginRatePerMinute: 10,
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $FOODGRAM_CONFIG when path is empty) and the environment.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path, _ = lookup(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	if cfg.GitHub.Enabled() && cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file on cfg. Keys absent from the file keep
// their current value.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s=%q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s=%q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}

	num("PORT", &c.Port)
	str("DB_PATH", &c.DBPath)
	str("JWT_SECRET", &c.JWTSecret)
	flag("SECURE_COOKIES", &c.SecureCookies)
	str("MEDIA_DIR", &c.MediaDir)
	str("MEDIA_URL", &c.MediaURL)

	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_ACCESS_KEY", &c.S3.AccessKey)
	str("S3_SECRET_KEY", &c.S3.SecretKey)
	str("S3_BUCKET", &c.S3.Bucket)
	flag("S3_USE_SSL", &c.S3.UseSSL)
	str("S3_PUBLIC_URL", &c.S3.PublicURL)

	str("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
	str("GITHUB_CALLBACK_URL", &c.GitHub.CallbackURL)

	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	num("LOGIN_RATE_PER_MINUTE", &c.LoginRatePerMinute)

	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	return errors.Join(errs...)
}

// Validate checks field constraints and returns every violation at once.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
}

// RequireServe checks what only the HTTP server needs.
func (c Config) RequireServe() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be set to at least 16 characters")
	}
	return nil
}

// NewLogger builds the root logger from LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
