package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Embedding EmbeddingConfig
	Assistant AssistantConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

// EmbeddingConfig selects the embedding backend. "openai" talks to the
// OpenAI embeddings API; "local" is a deterministic hashed bag-of-words
// fallback that needs no API key (development, seeding).
type EmbeddingConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// AssistantConfig carries every knob of the retrieval and learning engine.
type AssistantConfig struct {
	ProductRefreshInterval  time.Duration
	LearningRefreshInterval time.Duration
	DirectAnswerConfidence  float64
	LearningConfidence      float64
	MaxLearningEntries      int
	KeywordBoostProduct     float64
	KeywordBoostQA          float64
	KeywordBoostCap         float64
	AnswerLimit             int
	PriceSuffix             string
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// No .env found is fine: plain environment variables still apply
	// (Docker/K8s deployments).

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	embedDims, _ := strconv.Atoi(getEnv("EMBEDDING_DIMENSIONS", "256"))

	productRefreshMs, _ := strconv.Atoi(getEnv("ASSISTANT_PRODUCT_REFRESH_MS", "1800000"))
	learningRefreshMs, _ := strconv.Atoi(getEnv("ASSISTANT_LEARNING_REFRESH_MS", "300000"))
	maxEntries, _ := strconv.Atoi(getEnv("ASSISTANT_MAX_LEARNING_ENTRIES", "2000"))
	answerLimit, _ := strconv.Atoi(getEnv("ASSISTANT_ANSWER_LIMIT", "3"))

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "shopmind"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		Embedding: EmbeddingConfig{
			Provider:   getEnv("EMBEDDING_PROVIDER", "openai"),
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			BaseURL:    getEnv("OPENAI_BASE_URL", ""),
			Dimensions: embedDims,
		},
		Assistant: AssistantConfig{
			ProductRefreshInterval:  time.Duration(productRefreshMs) * time.Millisecond,
			LearningRefreshInterval: time.Duration(learningRefreshMs) * time.Millisecond,
			DirectAnswerConfidence:  getEnvFloat("ASSISTANT_DIRECT_ANSWER_CONFIDENCE", 0.45),
			LearningConfidence:      getEnvFloat("ASSISTANT_LEARNING_CONFIDENCE", 0.30),
			MaxLearningEntries:      maxEntries,
			KeywordBoostProduct:     getEnvFloat("ASSISTANT_KEYWORD_BOOST_PRODUCT", 0.03),
			KeywordBoostQA:          getEnvFloat("ASSISTANT_KEYWORD_BOOST_QA", 0.02),
			KeywordBoostCap:         getEnvFloat("ASSISTANT_KEYWORD_BOOST_CAP", 0.18),
			AnswerLimit:             answerLimit,
			PriceSuffix:             getEnv("ASSISTANT_PRICE_SUFFIX", "MNT"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
