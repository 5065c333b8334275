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
	Google   GoogleConfig
	Auth     AuthConfig
	Ai       AIConfig
	Events   EventsConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	MailTimezone       string
}

type DatabaseConfig struct {
	Connection    string
	LogLevel      string
	SlowThreshold time.Duration
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type AuthConfig struct {
	JwtSecret     string
	SessionTTL    time.Duration
	WsTokenSecret string
	WsTokenTTL    time.Duration
}

type AIConfig struct {
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	GroqAPIKey     string
	GroqModel      string
	GroqBaseURL    string
	Temperature    float64
	MaxTokens      int
	DefaultModel   string
	MaxToolRounds  int
	SearchToolName string
	TopKDefault    int
	TopKMax        int
	MemoryLimit    int
}

type EventsConfig struct {
	ChatCompletedTopic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	environment := getEnv("GO_ENV", "development")
	dbLogLevel := "warn"
	if environment == "development" {
		dbLogLevel = "info"
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        environment,
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			MailTimezone:       getEnv("MAIL_TIMEZONE", "UTC"),
		},
		Database: DatabaseConfig{
			Connection:    getEnv("DATABASE_URL", getEnv("DB_CONNECTION_STRING", "")),
			LogLevel:      getEnv("DB_LOG_LEVEL", dbLogLevel),
			SlowThreshold: time.Duration(getEnvAsInt("DB_SLOW_QUERY_MS", 1000)) * time.Millisecond,
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:5173/auth/callback"),
		},
		Auth: AuthConfig{
			JwtSecret:     jwtSecret,
			SessionTTL:    time.Duration(getEnvAsInt("SESSION_TTL_DAYS", 7)) * 24 * time.Hour,
			WsTokenSecret: getEnv("WS_TOKEN_SECRET", jwtSecret),
			WsTokenTTL:    time.Duration(getEnvAsInt("WS_TOKEN_TTL_SECONDS", 60)) * time.Second,
		},
		Ai: AIConfig{
			GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
			GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			GeminiBaseURL:  getEnv("GEMINI_API_URL", ""),
			GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
			GroqModel:      getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			GroqBaseURL:    getEnv("GROQ_API_URL", ""),
			Temperature:    getEnvAsFloat("AI_TEMPERATURE", 0.1),
			MaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 1200),
			DefaultModel:   getEnv("AI_DEFAULT_MODEL", "gemini"),
			MaxToolRounds:  getEnvAsInt("AI_MAX_TOOL_ROUNDS", 6),
			SearchToolName: getEnv("AI_SEARCH_TOOL_NAME", "search_candidates"),
			TopKDefault:    getEnvAsInt("AI_TOP_K_DEFAULT", 30),
			TopKMax:        getEnvAsInt("AI_TOP_K_MAX", 50),
			MemoryLimit:    getEnvAsInt("AI_MEMORY_LIMIT", 12),
		},
		Events: EventsConfig{
			ChatCompletedTopic: getEnv("AI_CHAT_COMPLETED_TOPIC", "ai.chat.completed"),
		},
	}
}

// OtelEnabled reports whether OTLP trace export is switched on.
func OtelEnabled() bool {
	return getEnvAsBool("OTEL_ENABLED", false)
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
