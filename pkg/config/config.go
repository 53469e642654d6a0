// Package config loads gateway settings from defaults, an optional YAML file,
// the environment and finally command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yangrchen/actor-runner/pkg/platform"
	"github.com/yangrchen/actor-runner/pkg/resolver"
	"github.com/yangrchen/actor-runner/pkg/runner"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	BaseURL         string        `yaml:"base_url"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPolls        int           `yaml:"max_polls"`
	FeaturedActor   string        `yaml:"featured_actor"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

func Default() Config {
	return Config{
		Addr:            ":8080",
		BaseURL:         platform.DefaultBaseURL,
		UpstreamTimeout: 30 * time.Second,
		PollInterval:    runner.DefaultPollInterval,
		MaxPolls:        runner.DefaultMaxPolls,
		FeaturedActor:   resolver.DefaultFeaturedActor,
		LogLevel:        "info",
		LogFormat:       "text",
		CORSOrigins:     []string{"*"},
	}
}

// Load reads path over the defaults (when path is non-empty) and applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if p, ok := lookup("PORT"); ok && p != "" {
		if _, err := strconv.Atoi(p); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		c.Addr = ":" + p
	}
	if u, ok := lookup("APIFY_BASE_URL"); ok && u != "" {
		c.BaseURL = u
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an absolute URL", c.BaseURL))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("upstream_timeout must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.MaxPolls <= 0 {
		errs = append(errs, errors.New("max_polls must be positive"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
