package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Admin panel
	AdminPasswordHash string
	AdminPassword     string

	// Gemini AI
	GeminiAPIKey         string
	GeminiChatModel      string
	GeminiImageModel     string
	GeminiTTSModel       string
	GeminiConcurrentReqs int

	// Knowledge context
	ContextCharBudget     int
	HistoryWindow         int
	CorpusCacheTTLSeconds int

	// Workers
	WorkerCount int

	// Storage
	StoragePath string

	// Frontend
	FrontendURL string

	// TrustProxy honours X-Forwarded-For / X-Real-IP. Only enable it behind a
	// reverse proxy that overwrites those headers.
	TrustProxy bool
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		DatabaseURL:           mustGetEnv("DATABASE_URL"),
		RedisURL:              mustGetEnv("REDIS_URL"),
		JWTSecret:             mustGetEnv("JWT_SECRET"),
		AdminPasswordHash:     getEnvOrDefault("ADMIN_PASSWORD_HASH", ""),
		AdminPassword:         getEnvOrDefault("ADMIN_PASSWORD", ""),
		GeminiAPIKey:          mustGetEnv("GEMINI_API_KEY"),
		GeminiChatModel:       getEnvOrDefault("GEMINI_CHAT_MODEL", "gemini-2.5-flash-lite"),
		GeminiImageModel:      getEnvOrDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiTTSModel:        getEnvOrDefault("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		ContextCharBudget:     getEnvAsIntOrDefault("CONTEXT_CHAR_BUDGET", 30000),
		HistoryWindow:         getEnvAsIntOrDefault("HISTORY_WINDOW", 5),
		CorpusCacheTTLSeconds: getEnvAsIntOrDefault("CORPUS_CACHE_TTL_SECONDS", 60),
		WorkerCount:           getEnvAsIntOrDefault("WORKER_COUNT", 3),
		StoragePath:           getEnvOrDefault("STORAGE_PATH", "./data"),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		TrustProxy:            getEnvAsBool("TRUST_PROXY"),
	}

	if cfg.AdminPasswordHash == "" && cfg.AdminPassword == "" {
		panic("one of ADMIN_PASSWORD_HASH or ADMIN_PASSWORD must be set")
	}

	return cfg
}

// LoadDatabaseURL is used by the CLI, which only needs the database.
func LoadDatabaseURL() string {
	godotenv.Load()
	return mustGetEnv("DATABASE_URL")
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
