// Package config loads linkshelf's settings from the environment.
//
// Values come from real environment variables first and from a .env file
// in the working directory second (godotenv never overwrites a variable
// that is already set). viper maps them onto Config and fills defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sqliteRepo "github.com/sakif/linkshelf/internal/repository/sqlite"
)

// MinSessionSecretLength is the shortest accepted SESSION_SECRET.
const MinSessionSecretLength = 16

// Config holds every setting of the server and the CLI.
type Config struct {
	Port      int    `mapstructure:"PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseAuthToken string `mapstructure:"DATABASE_AUTH_TOKEN"`

	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `mapstructure:"GITHUB_CALLBACK_URL"`

	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	SecureCookies bool          `mapstructure:"SECURE_COOKIES"`

	// AllowedUsers is the raw comma-separated allow-list; see access.Parse.
	AllowedUsers string `mapstructure:"ALLOWED_USERS"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
}

var defaults = map[string]any{
	"PORT":                 8080,
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "text",
	"DATABASE_URL":         "",
	"DATABASE_AUTH_TOKEN":  "",
	"GITHUB_CLIENT_ID":     "",
	"GITHUB_CLIENT_SECRET": "",
	"GITHUB_CALLBACK_URL":  "",
	"SESSION_SECRET":       "",
	"SESSION_TTL":          "8h",
	"SECURE_COOKIES":       false,
	"ALLOWED_USERS":        "",
	"REDIS_URL":            "",
	"CACHE_TTL":            "5m",
}

// LoadDotEnv reads the given .env files (".env" when none are named) into
// the process environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from the environment. It only fails when a
// value cannot be converted (for example SESSION_TTL=soon); use
// ValidateServer or ValidateStore to check required keys.
func Load() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding environment: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	return cfg, nil
}

// RemoteDatabase reports whether DATABASE_URL names a hosted libSQL database.
// It uses the same test as the store's Open.
func (c Config) RemoteDatabase() bool {
	return sqliteRepo.IsRemote(c.DatabaseURL)
}

// ValidateStore checks the settings every command that touches the
// database needs.
func (c Config) ValidateStore() error {
	var missing []string
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.RemoteDatabase() && c.DatabaseAuthToken == "" {
		missing = append(missing, "DATABASE_AUTH_TOKEN")
	}
	return missingError(missing)
}

// ValidateServer checks everything the HTTP server needs and names every
// problem at once, so a misconfigured deploy fails with one message.
func (c Config) ValidateServer() error {
	var missing []string
	if err := c.ValidateStore(); err != nil {
		var m *MissingError
		if errors.As(err, &m) {
			missing = append(missing, m.Keys...)
		}
	}
	for key, val := range map[string]string{
		"GITHUB_CLIENT_ID":     c.GitHubClientID,
		"GITHUB_CLIENT_SECRET": c.GitHubClientSecret,
		"SESSION_SECRET":       c.SessionSecret,
		"ALLOWED_USERS":        c.AllowedUsers,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if err := missingError(missing); err != nil {
		return err
	}

	var problems []error
	if len(c.SessionSecret) < MinSessionSecretLength {
		problems = append(problems, fmt.Errorf("config: SESSION_SECRET must be at least %d characters", MinSessionSecretLength))
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, errors.New("config: SESSION_TTL must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Errorf("config: PORT %d is out of range", c.Port))
	}
	return errors.Join(problems...)
}

// MissingError lists required keys that were not set.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "config: missing required settings: " + strings.Join(e.Keys, ", ")
}

func missingError(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	slices.Sort(keys)
	return &MissingError{Keys: keys}
}
