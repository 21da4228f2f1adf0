package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath      string
	Environment string
	// Geography defaults
	DefaultCountry string // ISO 3166-1 alpha-3 code used when a tenant does not specify one
	// Mirroring
	MirrorBatchSize int // canonical nodes fetched per level batch during a mirroring pass
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBPath:          getEnv("DB_PATH", "db/app.db"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		DefaultCountry:  strings.ToUpper(getEnv("DEFAULT_COUNTRY", "NPL")),
		MirrorBatchSize: getEnvInt("MIRROR_BATCH_SIZE", 500),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
