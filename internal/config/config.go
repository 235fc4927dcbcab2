// Package config loads the application configuration from a YAML file with
// ${VAR} environment substitution, then applies environment-variable
// overrides. Configuration is an explicit value handed to constructors;
// nothing in the repository reads it ambiently.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	App      App      `mapstructure:"app"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Workflow Workflow `mapstructure:"workflow"`
	Identity Identity `mapstructure:"identity"`
	Session  Session  `mapstructure:"session"`
}

// App identifies the running service.
type App struct {
	Name        string `mapstructure:"name" env:"APP_NAME"`
	Environment string `mapstructure:"environment" env:"APP_ENVIRONMENT"`
}

// Server configures the HTTP listener.
type Server struct {
	Host string `mapstructure:"host" env:"SERVER_HOST"`
	Port int    `mapstructure:"port" env:"PORT"`
}

// Database configures the relational store connection.
type Database struct {
	URL string `mapstructure:"url" env:"DATABASE_URL"`
}

// Redis configures the optional remote session cache.
type Redis struct {
	Enabled  bool   `mapstructure:"enabled" env:"REDIS_ENABLED"`
	URL      string `mapstructure:"url" env:"REDIS_URL"`
	Password string `mapstructure:"password" env:"REDIS_PASSWORD"`
}

// Workflow configures the workflow-engine client.
type Workflow struct {
	Enabled   bool   `mapstructure:"enabled" env:"WORKFLOW_ENABLED"`
	Target    string `mapstructure:"target" env:"WORKFLOW_TARGET"`
	Namespace string `mapstructure:"namespace" env:"WORKFLOW_NAMESPACE"`
	TaskQueue string `mapstructure:"task_queue" env:"WORKFLOW_TASK_QUEUE"`
}

// Identity configures the OIDC identity providers, keyed by provider name.
type Identity struct {
	Providers map[string]Provider `mapstructure:"providers"`
}

// Provider is one identity provider.
type Provider struct {
	Issuer  string `mapstructure:"issuer"`
	JWKSURL string `mapstructure:"jwks_url"`
}

// Session configures the session store maintenance loop.
type Session struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" env:"SESSION_CLEANUP_INTERVAL"`
}

// Load reads a YAML configuration file, substitutes ${VAR} references from
// the environment, decodes the top-level "config" mapping, and finally
// applies direct environment overrides.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.Expand(string(content), os.Getenv)

	var file struct {
		Config map[string]any `yaml:"config"`
	}
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if file.Config == nil {
		return nil, fmt.Errorf("parse config: missing top-level 'config' key in %s", path)
	}

	cfg := defaults()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(file.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		App: App{
			Name:        "gantry",
			Environment: "development",
		},
		Server: Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Session: Session{
			CleanupInterval: 5 * time.Minute,
		},
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("invalid config: database.url is required")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("invalid config: redis.url is required when redis is enabled")
	}
	if c.Workflow.Enabled && c.Workflow.Target == "" {
		return fmt.Errorf("invalid config: workflow.target is required when the workflow engine is enabled")
	}
	for name, p := range c.Identity.Providers {
		if p.Issuer == "" {
			return fmt.Errorf("invalid config: identity provider %q has no issuer", name)
		}
	}
	return nil
}
