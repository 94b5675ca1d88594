// Package config loads application configuration from a YAML file with
// environment-variable overrides for the values that differ between
// deployments.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`

	// DBPath is the SQLite database file path.
	DBPath string `yaml:"db_path"`

	// TemplateDir holds the HTML page templates.
	TemplateDir string `yaml:"template_dir"`

	// StaticDir holds static assets served under /static/.
	StaticDir string `yaml:"static_dir"`

	// SessionSecret signs session tokens. Required, minimum 16
	// characters; there is deliberately no default.
	SessionSecret string `yaml:"session_secret"`

	// PageSize is the page length for the HTML event list.
	PageSize int `yaml:"page_size"`

	// APIPageSize is the page length for the JSON event list.
	APIPageSize int `yaml:"api_page_size"`
}

// Default returns the built-in configuration, before file and
// environment overrides.
func Default() *Config {
	return &Config{
		Listen:      ":8080",
		DBPath:      "events.db",
		TemplateDir: "web/templates",
		StaticDir:   "web/static",
		PageSize:    10,
		APIPageSize: 30,
	}
}

// Load reads the YAML file at path (skipped entirely when path is empty
// or the file does not exist), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	} else if v := os.Getenv("JWT_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PageSize = n
		}
	}
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("session_secret is required (set it in the config file or SESSION_SECRET)")
	}
	if c.PageSize <= 0 {
		return errors.New("page_size must be positive")
	}
	if c.APIPageSize <= 0 {
		return errors.New("api_page_size must be positive")
	}
	return nil
}
