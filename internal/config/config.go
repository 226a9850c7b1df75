package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Advisor  AdvisorConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider   string // "openai" or "ollama"
	EmbeddingModel      string
	EmbeddingDimensions int
	OllamaBaseURL       string
	LLMProvider         string // "openai" or "ollama"
	LLMModel            string
	OpenAIAPIKey        string
}

type AdvisorConfig struct {
	SessionStore             string // "memory" or "redis"
	SessionCapacity          int
	SessionMaxEntities       int
	SessionTTL               time.Duration
	SweepInterval            time.Duration
	MaxHistory               int
	RetrievalK               int
	MaxResults               int
	MinSimilarity            float64
	MaxConcurrentGenerations int
	GenerationTimeoutSec     int
	IngestTopic              string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "openai"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 1536),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:         getEnv("LLM_PROVIDER", "openai"),
			LLMModel:            getEnv("LLM_MODEL", "gpt-4o-mini"),
			OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		},
		Advisor: AdvisorConfig{
			SessionStore:             getEnv("SESSION_STORE", "memory"),
			SessionCapacity:          getEnvAsInt("SESSION_CAPACITY", 8),
			SessionMaxEntities:       getEnvAsInt("SESSION_MAX_ENTITIES", 20),
			SessionTTL:               getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			SweepInterval:            getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Hour),
			MaxHistory:               getEnvAsInt("ADVISOR_MAX_HISTORY", 4),
			RetrievalK:               getEnvAsInt("RETRIEVAL_TOP_K", 5),
			MaxResults:               getEnvAsInt("RETRIEVAL_MAX_RESULTS", 8),
			MinSimilarity:            getEnvAsFloat("RETRIEVAL_MIN_SIMILARITY", 0.35),
			MaxConcurrentGenerations: getEnvAsInt("MAX_CONCURRENT_GENERATIONS", 8),
			GenerationTimeoutSec:     getEnvAsInt("GENERATION_TIMEOUT_SEC", 60),
			IngestTopic:              getEnv("INGEST_TOPIC", "document.ingest"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
