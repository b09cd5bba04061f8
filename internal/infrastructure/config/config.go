package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all engine configuration.
type Config struct {
	Engine  EngineConfig
	Server  ServerConfig
	Logging LogConfig
	Codec   CodecConfig
}

// EngineConfig holds isolate engine configuration.
type EngineConfig struct {
	// MaxIsolates caps the number of live isolates, main included.
	// Zero means unlimited.
	MaxIsolates int `envconfig:"ENCLAVE_MAX_ISOLATES" toml:"max_isolates"`
}

// ServerConfig holds the debug/inspection HTTP server configuration.
type ServerConfig struct {
	Host    string `envconfig:"ENCLAVE_HTTP_HOST" toml:"host"`
	Port    string `envconfig:"ENCLAVE_HTTP_PORT" toml:"port"`
	Enabled bool   `envconfig:"ENCLAVE_HTTP_ENABLED" toml:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"ENCLAVE_LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"ENCLAVE_LOG_DEV" toml:"development"`
}

// CodecConfig holds compression codec configuration.
type CodecConfig struct {
	// Level is the default compression level (1-9).
	Level int `envconfig:"ENCLAVE_CODEC_LEVEL" toml:"level"`
}

// fileEnvVar names the environment variable pointing at an optional TOML file.
const fileEnvVar = "ENCLAVE_CONFIG"

// Load loads configuration from the optional TOML file and the environment.
// Environment variables override file values.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(fileEnvVar); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxIsolates: 0,
		},
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    "8750",
			Enabled: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Codec: CodecConfig{
			Level: 9,
		},
	}
}

func (c *Config) validate() error {
	if c.Engine.MaxIsolates < 0 {
		return fmt.Errorf("max isolates must be non-negative, got %d", c.Engine.MaxIsolates)
	}
	if c.Codec.Level < 1 || c.Codec.Level > 9 {
		return fmt.Errorf("codec level must be between 1 and 9, got %d", c.Codec.Level)
	}
	return nil
}
