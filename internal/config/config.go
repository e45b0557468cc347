package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	// Evolution API (WhatsApp gateway)
	EvolutionAPIURL      string
	EvolutionAPIKey      string
	EvolutionInstance    string
	WebhookPath          string
	TypingDelay          time.Duration
	DefaultCountryCode   string
	GatewaySendTimeout   time.Duration
	GatewayTypingTimeout time.Duration

	// OpenAI
	OpenAIAPIKey     string
	OpenAIModel      string
	ExtractionWindow int
	ReplyWindow      int
	LLMTimeout       time.Duration

	// Notifications
	AdminEmail        string
	AdminWhatsApp     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	DashboardURL      string
	NotifyMaxRetries  int

	// Queue / worker
	WorkerCount int
	QueueBuffer int

	// Dashboard API
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		EvolutionAPIURL:      getEnv("EVOLUTION_API_URL", "https://api.evolution.br/api"),
		EvolutionAPIKey:      getEnv("EVOLUTION_API_KEY", ""),
		EvolutionInstance:    getEnv("EVOLUTION_INSTANCE_NAME", ""),
		WebhookPath:          getEnv("API_WEBHOOK_PATH", "/webhook/evolution"),
		TypingDelay:          getEnvAsDuration("TYPING_DELAY", time.Second),
		DefaultCountryCode:   getEnv("DEFAULT_COUNTRY_CODE", "55"),
		GatewaySendTimeout:   getEnvAsDuration("GATEWAY_SEND_TIMEOUT", 30*time.Second),
		GatewayTypingTimeout: getEnvAsDuration("GATEWAY_TYPING_TIMEOUT", 10*time.Second),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o"),
		ExtractionWindow: getEnvAsInt("EXTRACTION_HISTORY_WINDOW", 15),
		ReplyWindow:      getEnvAsInt("REPLY_HISTORY_WINDOW", 10),
		LLMTimeout:       getEnvAsDuration("LLM_TIMEOUT", 25*time.Second),

		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		AdminWhatsApp:     getEnv("ADMIN_WHATSAPP", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "noreply@seguroja.com.br"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Seguro JA"),
		DashboardURL:      getEnv("DASHBOARD_URL", ""),
		NotifyMaxRetries:  getEnvAsInt("NOTIFY_MAX_RETRIES", 3),

		WorkerCount: getEnvAsInt("WORKER_COUNT", 2),
		QueueBuffer: getEnvAsInt("QUEUE_BUFFER", 256),

		AdminAuthSecret:    getEnv("ADMIN_AUTH_SECRET", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable.
func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
