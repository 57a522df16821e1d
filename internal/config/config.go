// Package config loads the client configuration from an optional yaml file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kaimanfr/checkin/internal/utils"
)

// Duration accepts human-friendly values in yaml ("3s", "500ms"); yaml.v3
// would otherwise read a bare time.Duration as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	API struct {
		BaseURL string `yaml:"base_url" validate:"required,url"`
	} `yaml:"api"`
	Session struct {
		Path   string `yaml:"path" validate:"required"`
		Secret string `yaml:"secret" validate:"required"`
	} `yaml:"session"`
	Store struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"store"`
	Location struct {
		Enabled bool     `yaml:"enabled"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"location"`
	Log struct {
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"log"`
}

// Load reads the yaml file at path (missing file is fine), applies env
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8080"
	cfg.Session.Path = defaultDataPath("session.bin")
	cfg.Store.Path = defaultDataPath("checkin.db")
	cfg.Location.Enabled = true
	cfg.Location.Timeout = Duration(3 * time.Second)
	cfg.Log.Level = "info"

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.API.BaseURL = utils.SafeEnv("CHECKIN_API_BASE_URL", cfg.API.BaseURL)
	cfg.Session.Path = utils.SafeEnv("CHECKIN_SESSION_PATH", cfg.Session.Path)
	cfg.Session.Secret = utils.SafeEnv("CHECKIN_SESSION_SECRET", cfg.Session.Secret)
	cfg.Store.Path = utils.SafeEnv("CHECKIN_STORE_PATH", cfg.Store.Path)
	cfg.Location.Enabled = utils.EnvBool("CHECKIN_LOCATION_ENABLED", cfg.Location.Enabled)
	cfg.Location.Timeout = Duration(utils.EnvDuration("CHECKIN_LOCATION_TIMEOUT", time.Duration(cfg.Location.Timeout)))
	cfg.Log.Level = utils.SafeEnv("LOG_LEVEL", cfg.Log.Level)

	if cfg.Session.Secret == "" {
		// dev fallback; production deployments set CHECKIN_SESSION_SECRET
		cfg.Session.Secret = "checkin-dev-secret"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func defaultDataPath(file string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return file
	}
	return home + "/.checkin/" + file
}
