package config

import (
	"log"
	"os"
	"strings"
)

const (
	defaultDBPath   = "./pagen.db"
	defaultPort     = "8080"
	defaultLogLevel = "info"
)

// Config holds process configuration sourced from environment variables.
// Generation parameters live in settings documents, not here.
type Config struct {
	DBPath       string
	Port         string
	LogLevel     string
	SettingsPath string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	if err := loadDotEnv(".env"); err != nil {
		log.Printf("warning: could not read .env: %v", err)
	}

	cfg := Config{
		DBPath:       os.Getenv("DB_PATH"),
		Port:         os.Getenv("PORT"),
		LogLevel:     strings.ToLower(os.Getenv("LOG_LEVEL")),
		SettingsPath: os.Getenv("PAGEN_SETTINGS"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	return cfg
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
