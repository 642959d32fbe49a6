// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Storage backend names accepted for STORAGE_BACKEND.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config holds the application configuration.
type Config struct {
	Port       string
	DataDir    string
	ContentDir string
	StaticDir  string
	LogDir     string
	DebugMode  bool

	// Persistence provider selection.
	StorageBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
}

// Load reads configuration from the environment. A .env file is applied
// first when present.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		DataDir:        getEnvPath("DATA_DIR", "data"),
		ContentDir:     getEnvPath("CONTENT_DIR", "content"),
		StaticDir:      getEnv("STATIC_DIR", "web/static"),
		LogDir:         getEnvPath("LOG_DIR", "logs"),
		DebugMode:      getEnvBool("DEBUG_MODE", true),
		StorageBackend: getEnv("STORAGE_BACKEND", BackendFile),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
	}

	switch config.StorageBackend {
	case BackendFile, BackendRedis:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND: %q", config.StorageBackend)
	}

	return config, nil
}

// getEnv returns an environment variable or a default.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns a path environment variable, creating the directory
// when it does not exist yet.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool returns a boolean environment variable.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt returns an integer environment variable.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
