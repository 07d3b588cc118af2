package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Server
	Port        string
	FrontendURL string

	// Redis (optional; enables the cross-instance event bridge)
	RedisURL string

	// Game settings
	RoundSeconds           int
	RoundWorkerPollSeconds int
	MaxActivePlayers       int
	TrajectorySampleEvery  int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),

		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		RedisURL: getEnv("REDIS_URL", ""),

		RoundSeconds:           getEnvInt("ROUND_SECONDS", 30),
		RoundWorkerPollSeconds: getEnvInt("ROUND_WORKER_POLL_SECONDS", 1),
		MaxActivePlayers:       getEnvInt("MAX_ACTIVE_PLAYERS", 2),
		TrajectorySampleEvery:  getEnvInt("TRAJECTORY_SAMPLE_EVERY", 1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
