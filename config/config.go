// Package config loads the YAML configuration of the index builder.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/vision-index/cache"
)

// Config mirrors the layout of an index.yaml file
type Config struct {
	Dataset DatasetConfig `yaml:"dataset"`
	Cache   CacheConfig   `yaml:"cache"`
	Publish PublishConfig `yaml:"publish"`
	Log     LogConfig     `yaml:"log"`
}

// DatasetConfig locates the dataset on disk
type DatasetConfig struct {
	Root    string `yaml:"root"`    // directory holding train/ and val/
	Mapping string `yaml:"mapping"` // superclass mapping file
}

// CacheConfig controls the cache artifact
type CacheConfig struct {
	Output      string `yaml:"output"`
	Format      string `yaml:"format"`      // "proto" or "json"
	Compression string `yaml:"compression"` // "none", "zstd" or "lz4"
}

// PublishConfig is the optional object storage destination. Keys support ${VAR}.
type PublishConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns a configuration with every optional field filled in
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty optional fields
func (c *Config) ApplyDefaults() {
	if c.Cache.Output == "" {
		c.Cache.Output = "dataset_index.vidx"
	}
	if c.Cache.Format == "" {
		c.Cache.Format = "proto"
	}
	if c.Cache.Compression == "" {
		c.Cache.Compression = "none"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Publish.Region == "" {
		c.Publish.Region = "us-east-1"
	}
}

// Load reads a YAML file, expands environment variables and applies defaults.
// The result is not validated; call Validate once flag overrides are applied.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.Dataset.Root == "" {
		return fmt.Errorf("dataset.root is required")
	}
	if c.Dataset.Mapping == "" {
		return fmt.Errorf("dataset.mapping is required")
	}
	if c.Cache.Output == "" {
		return fmt.Errorf("cache.output is required")
	}
	if _, err := cache.ParseFormat(c.Cache.Format); err != nil {
		return fmt.Errorf("cache.format: %w", err)
	}
	if _, err := cache.ParseCompression(c.Cache.Compression); err != nil {
		return fmt.Errorf("cache.compression: %w", err)
	}
	if c.Publish.Enabled {
		if c.Publish.Endpoint == "" {
			return fmt.Errorf("publish.endpoint is required when publishing")
		}
		if c.Publish.Bucket == "" {
			return fmt.Errorf("publish.bucket is required when publishing")
		}
	}
	return nil
}
