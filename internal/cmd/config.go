package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration. Values come from an optional YAML
// file and can be overridden per-field by environment variables.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Script struct {
		Path string `yaml:"path"`
	} `yaml:"script"`
	Migrations struct {
		Path string `yaml:"path"`
	} `yaml:"migrations"`
}

func loadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", defaultStr(config.Server.Port, "8080"))
	config.NATS.URL = getEnv("NATS_URL", defaultStr(config.NATS.URL, "nats://localhost:4222"))
	config.Script.Path = getEnv("SCRIPT_PATH", config.Script.Path)
	config.Migrations.Path = getEnv("MIGRATIONS_PATH", defaultStr(config.Migrations.Path, "file://migrations"))

	return &config, nil
}

func defaultStr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
