// Package config provides configuration management for the contact-review dashboard.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// APIURL is the base URL of the contact REST API (e.g. https://mwa.example.com/api/v1).
	APIURL string `yaml:"api_url" validate:"required_without=PostgresDSN,omitempty,url"`
	// APIToken is sent as a bearer token when set.
	APIToken string `yaml:"api_token"`
	// WSURL is the push endpoint. Empty disables the realtime channel.
	WSURL string `yaml:"ws_url" validate:"omitempty,url"`

	// PageSize is the number of contacts per dashboard page.
	PageSize int `yaml:"page_size" validate:"gte=1,lte=500"`
	// LoadPageSize is the page size used when fetching the full collection from the API.
	LoadPageSize int `yaml:"load_page_size" validate:"gte=1,lte=1000"`
	// RequestsPerSecond limits calls to the contact API.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`

	Reconnect ReconnectConfig `yaml:"reconnect"`

	// ReconcileInterval is how often the full collection is reloaded, since the push channel is
	// at-most-once across reconnects. Zero disables periodic reloads.
	ReconcileInterval time.Duration `yaml:"reconcile_interval" validate:"gte=0"`

	// ExportDir receives CSV files produced by the export bulk action.
	ExportDir string `yaml:"export_dir" validate:"required"`

	// RedpandaBrokers enables the broker relay and broker-fed realtime channel.
	RedpandaBrokers []string `yaml:"redpanda_brokers" validate:"dive,hostname_port"`
	// EventsTopic is the broker topic carrying push envelopes.
	EventsTopic string `yaml:"events_topic" validate:"required"`

	// PostgresDSN lets the dashboard read the contacts table directly instead of the API.
	PostgresDSN string `yaml:"postgres_dsn"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// ReconnectConfig bounds the realtime channel's reconnect backoff.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay" validate:"gt=0"`
	MaxDelay    time.Duration `yaml:"max_delay" validate:"gtefield=BaseDelay"`
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=1"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		PageSize:          20,
		LoadPageSize:      200,
		RequestsPerSecond: 10,
		Reconnect: ReconnectConfig{
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
			MaxAttempts: 5,
		},
		ReconcileInterval: 5 * time.Minute,
		ExportDir:         ".",
		EventsTopic:       "mwa.contacts.events",
		LogLevel:          "info",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads an optional YAML file, then applies environment overrides and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func applyEnv(cfg *Config) error {
	setString(&cfg.APIURL, "MWA_API_URL")
	setString(&cfg.APIToken, "MWA_API_TOKEN")
	setString(&cfg.WSURL, "MWA_WS_URL")
	setString(&cfg.ExportDir, "MWA_EXPORT_DIR")
	setString(&cfg.EventsTopic, "MWA_EVENTS_TOPIC")
	setString(&cfg.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.LogLevel, "MWA_LOG_LEVEL")

	if v := os.Getenv("REDPANDA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.RedpandaBrokers = brokers
	}

	for _, f := range []struct {
		env string
		dst *int
	}{
		{"MWA_PAGE_SIZE", &cfg.PageSize},
		{"MWA_LOAD_PAGE_SIZE", &cfg.LoadPageSize},
		{"MWA_RECONNECT_MAX_ATTEMPTS", &cfg.Reconnect.MaxAttempts},
	} {
		if err := setInt(f.dst, f.env); err != nil {
			return err
		}
	}

	for _, f := range []struct {
		env string
		dst *time.Duration
	}{
		{"MWA_RECONNECT_BASE_DELAY", &cfg.Reconnect.BaseDelay},
		{"MWA_RECONNECT_MAX_DELAY", &cfg.Reconnect.MaxDelay},
		{"MWA_RECONCILE_INTERVAL", &cfg.ReconcileInterval},
	} {
		if err := setDuration(f.dst, f.env); err != nil {
			return err
		}
	}

	if v := os.Getenv("MWA_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MWA_REQUESTS_PER_SECOND: %w", err)
		}
		cfg.RequestsPerSecond = rps
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = d
	return nil
}
