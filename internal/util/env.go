package util

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/logger"

	"github.com/joho/godotenv"
)

func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

func GetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return ""
	}
	return value
}

func GetEnvString(key string, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}

	return value
}

func GetEnvNumeric(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	returnValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return defaultValue
	}

	return returnValue
}

func GetEnvInt(key string, defaultValue int) int {
	return int(GetEnvNumeric(key, float64(defaultValue)))
}

func GetEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	if value == "true" || value == "false" {
		return value == "true"
	}

	return defaultValue
}

// GetEnvSeconds reads an integer number of seconds.
func GetEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	secs := GetEnvNumeric(key, defaultValue.Seconds())
	if secs <= 0 {
		return defaultValue
	}
	return time.Duration(secs * float64(time.Second))
}

// DatabaseURL returns DATABASE_URL or assembles one from the DATABASE_* parts.
func DatabaseURL() string {
	if url := GetEnv("DATABASE_URL"); url != "" {
		return url
	}
	return "postgres://" + GetEnvString("DATABASE_USER", "kwenta") + ":" +
		GetEnvString("DATABASE_PASSWORD", "kwenta") + "@" +
		GetEnvString("DATABASE_HOST", "localhost") + ":" +
		GetEnvString("DATABASE_PORT", "5432") + "/" +
		GetEnvString("DATABASE_NAME", "kwenta") + "?sslmode=disable"
}
