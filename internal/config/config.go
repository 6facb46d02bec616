package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	str := strings.TrimSpace(value.Value)
	if str == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", str, err)
	}

	d.Duration = parsed
	return nil
}

// Config represents the root of the sync configuration.
type Config struct {
	GitLab  GitLabConfig  `yaml:"gitlab"`
	Jenkins JenkinsConfig `yaml:"jenkins"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// GitLabConfig contains settings for the GitLab API.
type GitLabConfig struct {
	URL           string   `yaml:"url"`
	AdminToken    string   `yaml:"admin_token"`
	SkipTLSVerify bool     `yaml:"skip_tls_verify"`
	Timeout       Duration `yaml:"timeout"`
}

// JenkinsConfig contains Jenkins connection settings.
type JenkinsConfig struct {
	URL           string `yaml:"url"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
	// Seed salts the per-project trigger token. Optional.
	Seed          string   `yaml:"seed"`
	SkipTLSVerify bool     `yaml:"skip_tls_verify"`
	Timeout       Duration `yaml:"timeout"`
}

// ServerConfig controls the system hook listener.
type ServerConfig struct {
	ListenAddr   string   `yaml:"listen_addr"`
	HookSecret   string   `yaml:"hook_secret"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	// QueueSize bounds the hooks waiting for reconciliation.
	QueueSize int `yaml:"queue_size"`
}

// LoggingConfig customises slog configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with only defaults filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from the provided path and applies defaults.
// Validation is left to the caller so flags can fill the gaps first.
func Load(path string) (*Config, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset optional values.
func (c *Config) ApplyDefaults() {
	if c.GitLab.Timeout.Duration == 0 {
		c.GitLab.Timeout = Duration{Duration: 30 * time.Second}
	}
	if c.Jenkins.Timeout.Duration == 0 {
		c.Jenkins.Timeout = Duration{Duration: 30 * time.Second}
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Duration{Duration: 15 * time.Second}
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Duration{Duration: 15 * time.Second}
	}
	if c.Server.QueueSize <= 0 {
		c.Server.QueueSize = 100
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the values every command needs.
func (c *Config) Validate() error {
	var errs []error
	if err := validateURL("gitlab-url", c.GitLab.URL); err != nil {
		errs = append(errs, err)
	}
	if c.GitLab.AdminToken == "" {
		errs = append(errs, errors.New("gitlab-admin-token is required"))
	}
	if err := validateURL("jenkins-url", c.Jenkins.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Jenkins.AdminUser == "" {
		errs = append(errs, errors.New("jenkins-admin-user is required"))
	}
	if c.Jenkins.AdminPassword == "" {
		errs = append(errs, errors.New("jenkins-admin-password is required"))
	}
	return errors.Join(errs...)
}

// ValidateServer checks the values the hook listener needs on top of Validate.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr must be provided")
	}
	if c.Server.HookSecret == "" {
		return errors.New("server.hook_secret must be provided")
	}
	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", name, raw)
	}
	return nil
}
