package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Sweep  SweepConfig  `yaml:"sweep"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SweepConfig controls the idle sweep scheduler.
type SweepConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

// UnmarshalYAML accepts the interval as a duration string ("30s", "2m").
func (s *SweepConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval  string `yaml:"interval"`
		BatchSize int    `yaml:"batch_size"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("invalid sweep interval: %w", err)
		}
		s.Interval = d
	}
	if raw.BatchSize != 0 {
		s.BatchSize = raw.BatchSize
	}
	return nil
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "clockout.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Sweep: SweepConfig{
			Interval:  time.Minute,
			BatchSize: 10,
		},
	}

	if path := os.Getenv("CLOCKOUT_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("CLOCKOUT_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("CLOCKOUT_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CLOCKOUT_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("CLOCKOUT_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("CLOCKOUT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if interval := os.Getenv("CLOCKOUT_SWEEP_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CLOCKOUT_SWEEP_INTERVAL: %w", err)
		}
		cfg.Sweep.Interval = d
	}
	if sizeStr := os.Getenv("CLOCKOUT_SWEEP_BATCH_SIZE"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CLOCKOUT_SWEEP_BATCH_SIZE: %w", err)
		}
		cfg.Sweep.BatchSize = size
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
