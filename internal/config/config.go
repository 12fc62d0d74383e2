// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// BackendJSON stores shares in a single JSON document on disk.
	BackendJSON = "json"
	// BackendSQLite stores shares in an embedded SQLite database.
	BackendSQLite = "sqlite"
)

type Config struct {
	Port         string
	StoreBackend string
	DataFile     string // jsondoc backend
	DBPath       string // sqlite backend
	LogLevel     string
	CORSOrigins  []string
}

// Load reads .env when present (missing is fine — production sets real
// env vars), then the environment, then fills defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendJSON)),
		DataFile:     getEnv("DATA_FILE", "data/shares.json"),
		DBPath:       getEnv("DB_PATH", "data/shares.db"),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	if cfg.StoreBackend != BackendJSON && cfg.StoreBackend != BackendSQLite {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want %q or %q)",
			cfg.StoreBackend, BackendJSON, BackendSQLite)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
