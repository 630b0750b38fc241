package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Database. Empty disables persistence: rooms then live only in memory.
	DatabaseURL string

	// JWT
	JWTSecret          string
	JWTExpirationHours int

	// Room cadence
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	PickTickInterval  time.Duration
	AIPickDelay       time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpirationHours: getEnvInt("JWT_EXPIRATION_HOURS", 24),
		HeartbeatInterval:  time.Duration(getEnvInt("HEARTBEAT_INTERVAL_MS", 1000)) * time.Millisecond,
		HeartbeatTimeout:   time.Duration(getEnvInt("HEARTBEAT_TIMEOUT_MS", 3000)) * time.Millisecond,
		PickTickInterval:   time.Duration(getEnvInt("PICK_TICK_INTERVAL_MS", 1000)) * time.Millisecond,
		AIPickDelay:        time.Duration(getEnvInt("AI_PICK_DELAY_MS", 1000)) * time.Millisecond,
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
