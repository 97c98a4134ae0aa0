package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL    string
	StoragePath   string
	RedisAddr     string
	RedisPassword string
	LogLevel      string
}

// Load reads configuration from the environment, with an optional .env
// file. A missing .env is fine; environment variables win either way.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BackendURL:    getEnv("BACKEND_URL", "http://localhost:3001"),
		StoragePath:   getEnv("STORAGE_PATH", defaultStoragePath()),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".restaurante/state.json"
	}
	return home + "/.restaurante/state.json"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
