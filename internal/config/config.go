package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Keys      APIKeys
	Ai        AIConfig
	Chat      ChatConfig
	Scheduler SchedulerConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	CatalogPath        string
}

type DatabaseConfig struct {
	Connection string
	Driver     string // "postgres" or "memory"
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	OpenAI       string
	GoogleGemini string
	HuggingFace  string
}

type AIConfig struct {
	LLMProvider       string // "openai", "ollama", "gemini", "huggingface"
	LLMModel          string
	OpenAIBaseURL     string
	OllamaBaseURL     string
	OllamaKeepAlive   string
	HuggingFaceURL    string
	StructuredOutput  bool // native json_schema support; false injects the schema into the prompt
	Temperature       float64
	MaxTokens         int
	ModerationEnabled bool
	ModerationModel   string
	RequestTimeout    time.Duration
}

type ChatConfig struct {
	HistoryLimit       int
	PromptHistoryTurns int
	DefaultPageSize    int
	MaxPageSize        int
	Locale             string
	TurnLockDriver     string // "memory" or "redis"
	TurnLockTTL        time.Duration
	CharacterCacheTTL  time.Duration
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			CatalogPath:        getEnv("CATALOG_PATH", "config/catalog.yaml"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Driver:     getEnv("DB_DRIVER", "postgres"),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Companion"),
		},
		Keys: APIKeys{
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaKeepAlive:   getEnv("OLLAMA_KEEP_ALIVE", ""),
			HuggingFaceURL:    getEnv("HUGGINGFACE_BASE_URL", "https://router.huggingface.co/v1"),
			StructuredOutput:  getEnvAsBool("LLM_STRUCTURED_OUTPUT", true),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.8),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 2500),
			ModerationEnabled: getEnvAsBool("MODERATION_ENABLED", true),
			ModerationModel:   getEnv("MODERATION_MODEL", "omni-moderation-latest"),
			RequestTimeout:    getEnvAsDuration("LLM_REQUEST_TIMEOUT", 120*time.Second),
		},
		Chat: ChatConfig{
			HistoryLimit:       getEnvAsInt("CHAT_HISTORY_LIMIT", 20),
			PromptHistoryTurns: getEnvAsInt("CHAT_PROMPT_HISTORY_TURNS", 10),
			DefaultPageSize:    getEnvAsInt("CHAT_DEFAULT_PAGE_SIZE", 30),
			MaxPageSize:        getEnvAsInt("CHAT_MAX_PAGE_SIZE", 100),
			Locale:             getEnv("CHAT_LOCALE", "pt-BR"),
			TurnLockDriver:     getEnv("CHAT_TURN_LOCK_DRIVER", "memory"),
			TurnLockTTL:        getEnvAsDuration("CHAT_TURN_LOCK_TTL", 3*time.Minute),
			CharacterCacheTTL:  getEnvAsDuration("CHARACTER_CACHE_TTL", 10*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvAsBool("REMINDER_SCHEDULER_ENABLED", true),
			Interval: getEnvAsDuration("REMINDER_SCHEDULER_INTERVAL", time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "companion-backend"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
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
