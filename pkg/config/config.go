package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	GatewayPort     string
	MessagingAPIURL string
	PushURL         string
	FirebaseProject string
	StorageBucket   string
	SessionToken    string
	ReadStatePath   string
	MaxUploadBytes  int64
	Environment     string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		GatewayPort:     getEnv("GATEWAY_PORT", "8082"),
		MessagingAPIURL: getEnv("MESSAGING_API_URL", "http://localhost:8080/v1"),
		PushURL:         getEnv("MESSAGING_PUSH_URL", ""),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		StorageBucket:   getEnv("STORAGE_BUCKET", ""),
		SessionToken:    getEnv("SESSION_TOKEN", ""),
		ReadStatePath:   getEnv("READ_STATE_PATH", "./weddinglink-readstate.db"),
		MaxUploadBytes:  getEnvAsInt64("MAX_UPLOAD_BYTES", 10*1024*1024), // 10MB
		Environment:     getEnv("ENVIRONMENT", "development"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
