package core

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gookit/config/v2"
	"github.com/gookit/config/v2/yaml"
)

const (
	DefaultAddr           = "0.0.0.0:3000"
	DefaultMaxConnections = 5
	DefaultRequestTimeout = "5s"
	DefaultBrokerTopic    = "todos"
)

var ErrMissingValue = errors.New("value is required")

// ConfigError reports a configuration key that could not be used. It is
// always fatal at startup.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type Log struct {
	Level  string `config:"level"`
	Format string `config:"format"`
}

type Broker struct {
	URL   string `config:"url"`
	Topic string `config:"topic"`
	Name  string `config:"name"`
}

type Config struct {
	Addr           string `config:"addr"`
	DatabaseURL    string `config:"database_url"`
	MaxConnections int    `config:"max_connections"`
	RequestTimeout string `config:"request_timeout"`
	Log            Log    `config:"log"`
	Broker         Broker `config:"broker"`
}

// envKeys maps process environment variables onto config keys. Environment
// values win over the config files.
var envKeys = map[string]string{
	"DATABASE_URL":          "database_url",
	"TODOS_ADDR":            "addr",
	"TODOS_MAX_CONNECTIONS": "max_connections",
	"TODOS_REQUEST_TIMEOUT": "request_timeout",
	"TODOS_LOG_LEVEL":       "log.level",
	"TODOS_LOG_FORMAT":      "log.format",
	"TODOS_BROKER_URL":      "broker.url",
	"TODOS_BROKER_TOPIC":    "broker.topic",
	"TODOS_BROKER_NAME":     "broker.name",
}

// NewConfig loads path (when not empty) and its ".local.yml" sibling, then
// applies the environment on top. The file is optional: a service configured
// only through DATABASE_URL is valid.
func NewConfig(path string) (*Config, error) {
	var appConfig Config

	c := config.NewWithOptions("todos", func(opt *config.Options) {
		opt.ParseEnv = true
		opt.DecoderConfig.TagName = "config"
		opt.DecoderConfig.WeaklyTypedInput = true
	})

	c.AddDriver(yaml.Driver)

	if path != "" {
		if err := c.LoadExists(path); err != nil {
			return nil, err
		}

		if err := c.LoadExists(strings.Replace(path, ".yml", ".local.yml", 1)); err != nil {
			return nil, err
		}
	}

	for name, key := range envKeys {
		if v := os.Getenv(name); v != "" {
			if err := c.Set(key, v); err != nil {
				return nil, &ConfigError{Key: key, Err: err}
			}
		}
	}

	if err := c.BindStruct("", &appConfig); err != nil {
		return nil, err
	}

	appConfig.applyDefaults()

	if err := appConfig.Validate(); err != nil {
		return nil, err
	}

	return &appConfig, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}

	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}

	if c.RequestTimeout == "" {
		c.RequestTimeout = DefaultRequestTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Broker.Topic == "" {
		c.Broker.Topic = DefaultBrokerTopic
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return &ConfigError{Key: "database_url", Err: ErrMissingValue}
	}

	if c.MaxConnections < 1 {
		return &ConfigError{Key: "max_connections", Err: fmt.Errorf("must be positive, got %d", c.MaxConnections)}
	}

	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return &ConfigError{Key: "request_timeout", Err: err}
	}

	if d < 0 {
		return &ConfigError{Key: "request_timeout", Err: fmt.Errorf("must not be negative, got %s", d)}
	}

	return nil
}

// Timeout is the per-request deadline. Zero disables it.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}
