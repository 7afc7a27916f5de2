package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         int          `yaml:"port"`
	Root         string       `yaml:"root"`
	Files        string       `yaml:"files"`
	Cache        CacheConfig  `yaml:"cache"`
	Source       SourceConfig `yaml:"source"`
	MaxBodyBytes int64        `yaml:"maxBodyBytes"`
	LogFile      string       `yaml:"logFile"`
}

type CacheConfig struct {
	Capacity  int `yaml:"capacity"`
	IndexHint int `yaml:"indexHint"`
}

type SourceConfig struct {
	// "dir" (files below root) or "sqlite"
	Type string `yaml:"type"`
	DB   string `yaml:"db"`
}

func defaultConfig() Config {
	return Config{
		Port:  3490,
		Root:  "./serverroot",
		Files: "./serverfiles",
		Cache: CacheConfig{
			Capacity: 10,
		},
		Source: SourceConfig{
			Type: "dir",
			DB:   "content.db",
		},
	}
}

// getConfig reads the given YAML file on top of the defaults.
func getConfig(filename string) (Config, error) {
	config := defaultConfig()
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Cache.IndexHint < 0 {
		return fmt.Errorf("index hint must not be negative, got %d", c.Cache.IndexHint)
	}
	switch c.Source.Type {
	case "dir":
		if c.Root == "" {
			return fmt.Errorf("dir source needs a root")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported content source: %s", c.Source.Type)
	}
	return nil
}
