// Package config loads application configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultChunkCooldownMS = 1000

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	Events   EventsConfig   `yaml:"events"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis connection settings for dispatch locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES credentials and sending settings.
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	Endpoint         string `yaml:"endpoint"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// EventsConfig holds the SQS drain settings for provider events.
type EventsConfig struct {
	QueueURL string `yaml:"queue_url"`
}

// DispatchConfig holds the chunking and pacing knobs for campaign sends.
type DispatchConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
	// ChunkCooldownMS is a pointer so an explicit 0 (no spacing) is
	// distinguishable from an absent key, which gets the default.
	ChunkCooldownMS *int `yaml:"chunk_cooldown_ms"`
	// PaceSingleChunk applies the cooldown even to single-chunk sends.
	// Off by default: a lone chunk has nothing to pace against.
	PaceSingleChunk bool `yaml:"pace_single_chunk"`
	LockTTLSeconds  int  `yaml:"lock_ttl_seconds"`
}

// ChunkCooldown returns the inter-chunk spacing as a duration.
func (d DispatchConfig) ChunkCooldown() time.Duration {
	if d.ChunkCooldownMS == nil {
		return defaultChunkCooldownMS * time.Millisecond
	}
	return time.Duration(*d.ChunkCooldownMS) * time.Millisecond
}

// LockTTL returns the dispatch lock TTL as a duration.
func (d DispatchConfig) LockTTL() time.Duration {
	return time.Duration(d.LockTTLSeconds) * time.Second
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// ${VAR} placeholders resolve from the environment so secrets stay out
	// of the file.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is read first, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("AWS_SES_ENDPOINT"); v != "" {
		cfg.SES.Endpoint = v
	}
	if v := os.Getenv("SES_CONFIGURATION_SET"); v != "" {
		cfg.SES.ConfigurationSet = v
	}
	if v := os.Getenv("EVENTS_QUEUE_URL"); v != "" {
		cfg.Events.QueueURL = v
	}
	if v := os.Getenv("DISPATCH_MAX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.MaxBatchSize = n
		}
	}
	if v := os.Getenv("DISPATCH_CHUNK_COOLDOWN_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.ChunkCooldownMS = &n
		}
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.SES.Region == "" {
		c.SES.Region = "us-east-1"
	}
	if c.Dispatch.MaxBatchSize == 0 {
		c.Dispatch.MaxBatchSize = 50
	}
	if c.Dispatch.ChunkCooldownMS == nil {
		v := defaultChunkCooldownMS
		c.Dispatch.ChunkCooldownMS = &v
	}
	if c.Dispatch.LockTTLSeconds == 0 {
		c.Dispatch.LockTTLSeconds = 900
	}
}

func (c *Config) validate() error {
	if c.Dispatch.MaxBatchSize < 1 || c.Dispatch.MaxBatchSize > 50 {
		return fmt.Errorf("dispatch.max_batch_size must be between 1 and 50, got %d", c.Dispatch.MaxBatchSize)
	}
	if *c.Dispatch.ChunkCooldownMS < 0 {
		return fmt.Errorf("dispatch.chunk_cooldown_ms must not be negative")
	}
	return nil
}
