package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/yegors/metar-fetcher/internal/weather"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Logging LoggingConfig         `toml:"logging"` // Application logging settings
	Weather weather.WeatherConfig `toml:"wx"`      // METAR feed and TAF endpoints
	Server  ServerConfig          `toml:"server"`  // HTTP server settings for serve mode
}

// LoggingConfig contains logging configuration settings
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the API
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request

	RateLimitPerMinute int `toml:"rate_limit_per_minute"` // Requests per client IP per minute on /api (0 = unlimited)
}

// ErrConfigNotFound is returned when an explicitly requested config file does not exist
var ErrConfigNotFound = errors.New("config file not found")

// Default returns the configuration used when no config file is present
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Weather: weather.DefaultWeatherConfig(),
		Server: ServerConfig{
			Port:             8080,
			Host:             "127.0.0.1",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 60,
			IdleTimeoutSecs:  60,

			RateLimitPerMinute: 60,
		},
	}
}

// Load reads a TOML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return config, nil
}

// LoadWithFallback loads the config from preferredPath when it is set, and
// otherwise from the first of the usual locations that exists. With no
// explicit path and no file on disk it returns Default().
func LoadWithFallback(preferredPath string) (*Config, error) {
	if preferredPath != "" {
		config, err := Load(preferredPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", preferredPath, err)
		}
		return config, nil
	}

	for _, path := range []string{"configs/config.toml", "config.toml"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		config, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		return config, nil
	}

	return Default(), nil
}

// Validate checks every section
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	if err := c.ValidateWeather(); err != nil {
		return err
	}
	return c.ValidateServer()
}

// ValidateWeather checks the [wx] section
func (c *Config) ValidateWeather() error {
	if err := validateHTTPURL("weather metar_feed_url", c.Weather.METARFeedURL); err != nil {
		return err
	}
	if err := validateHTTPURL("weather taf_base_url", c.Weather.TAFBaseURL); err != nil {
		return err
	}

	if c.Weather.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("weather request_timeout_seconds must be greater than 0: %d", c.Weather.RequestTimeoutSeconds)
	}

	if strings.TrimSpace(c.Weather.UserAgent) == "" {
		return fmt.Errorf("weather user_agent cannot be empty")
	}

	return nil
}

// ValidateServer checks the [server] section
func (c *Config) ValidateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be 0 or greater")
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server rate_limit_per_minute must be 0 or greater: %d", c.Server.RateLimitPerMinute)
	}
	return nil
}

func validateHTTPURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https: %s", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %s", name, raw)
	}
	return nil
}
