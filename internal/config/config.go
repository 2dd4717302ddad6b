package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DBUrl            string
	JWTSecret        string
	FrontendURL      string
	OpenRouterURL    string
	OpenRouterAPIKey string
	OpenRouterModel  string
	AssistantTimeout time.Duration
	AppEnv           string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:             getEnv("PORT", "5000"),
		DBUrl:            getEnv("DB_URL", ""),
		JWTSecret:        jwtSecret,
		FrontendURL:      getEnv("FRONTEND_URL", "*"),
		OpenRouterURL:    getEnv("OPENROUTER_URL", "https://openrouter.ai/api/v1"),
		OpenRouterAPIKey: getEnv("META_API_KEY", ""),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "meta-llama/llama-3.1-8b-instruct"),
		AssistantTimeout: getEnvDuration("ASSISTANT_TIMEOUT_SECONDS", 30*time.Second),
		AppEnv:           normalizeEnv(getEnv("APP_ENV", "production")),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
