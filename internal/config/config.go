// Package config loads postq settings from YAML with POSTQ_* environment
// overrides. Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reoring/postq/internal/logging"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Failure modes.
const (
	FailNever    = "never"
	FailAlways   = "always"
	FailEveryNth = "every_nth"
	FailSeeded   = "seeded"
)

// Config is the full configuration.
type Config struct {
	Server  Server         `yaml:"server"`
	Store   Store          `yaml:"store"`
	Failure Failure        `yaml:"failure"`
	Client  Client         `yaml:"client"`
	Log     logging.Config `yaml:"log"`
}

// Server configures the mock backend.
type Server struct {
	Addr             string        `yaml:"addr"`
	Delay            time.Duration `yaml:"delay"`
	ValidateRequests bool          `yaml:"validate_requests"`
}

// Store selects and configures the storage backend.
type Store struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Watch  bool   `yaml:"watch"`
	DSN    string `yaml:"dsn"`
}

// Failure configures injected server errors.
type Failure struct {
	Mode    string   `yaml:"mode"`
	Rate    float64  `yaml:"rate"`
	Seed    int64    `yaml:"seed"`
	Every   int      `yaml:"every"`
	Methods []string `yaml:"methods"`
}

// Client configures the CLI's post client.
type Client struct {
	BaseURL      string `yaml:"base_url"`
	StrictTitles bool   `yaml:"strict_titles"`
}

// Default mirrors the json-server setup: port 8000, db.json, one second of
// latency and half of the titled PUTs failing.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8000", Delay: time.Second, ValidateRequests: true},
		Store:  Store{Driver: DriverFile, Path: "db.json"},
		Failure: Failure{
			Mode:    FailSeeded,
			Rate:    0.5,
			Seed:    1,
			Every:   2,
			Methods: []string{"PUT"},
		},
		Client: Client{BaseURL: "http://localhost:8000"},
		Log:    logging.Config{Level: "info"},
	}
}

// Load reads path (optional) over the defaults, then applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode rejects unknown keys so a typo does not silently fall back to a
// default.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("POSTQ_ADDR", &cfg.Server.Addr)
	str("POSTQ_STORE", &cfg.Store.Driver)
	str("POSTQ_DB", &cfg.Store.Path)
	str("POSTQ_PG_DSN", &cfg.Store.DSN)
	str("POSTQ_FAIL_MODE", &cfg.Failure.Mode)
	str("POSTQ_BASE_URL", &cfg.Client.BaseURL)
	str("POSTQ_LOG_LEVEL", &cfg.Log.Level)

	if v, ok := lookup("POSTQ_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: POSTQ_DELAY: %w", err)
		}
		cfg.Server.Delay = d
	}
	if v, ok := lookup("POSTQ_FAIL_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: POSTQ_FAIL_RATE: %w", err)
		}
		cfg.Failure.Rate = f
	}
	if v, ok := lookup("POSTQ_FAIL_METHODS"); ok {
		cfg.Failure.Methods = strings.Split(v, ",")
	}
	for _, b := range []struct {
		key string
		dst *bool
	}{
		{"POSTQ_VALIDATE_REQUESTS", &cfg.Server.ValidateRequests},
		{"POSTQ_WATCH", &cfg.Store.Watch},
		{"POSTQ_STRICT_TITLES", &cfg.Client.StrictTitles},
	} {
		v, ok := lookup(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", b.key, err)
		}
		*b.dst = parsed
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.Server.Delay < 0 {
		return fmt.Errorf("config: server.delay must not be negative")
	}
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path is required for the file driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Failure.Mode {
	case FailNever, FailAlways:
	case FailEveryNth:
		if c.Failure.Every < 1 {
			return fmt.Errorf("config: failure.every must be at least 1")
		}
	case FailSeeded:
		if c.Failure.Rate < 0 || c.Failure.Rate > 1 {
			return fmt.Errorf("config: failure.rate must be within [0,1]")
		}
	default:
		return fmt.Errorf("config: unknown failure.mode %q", c.Failure.Mode)
	}
	return nil
}
