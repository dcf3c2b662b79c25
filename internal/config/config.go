package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AdminJWTSecret string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string

	CalendlyToken        string
	CalendlyEventTypeURI string

	// ChatAPIKeys maps widget API keys to org IDs, formatted "key:org,key:org".
	ChatAPIKeys string

	OrgDisplayName     string
	PersonaPrompt      string
	LeadCaptureEnabled bool

	LLMTimeout        time.Duration
	ClassifierTimeout time.Duration
	CalendarTimeout   time.Duration

	// Contact-collection timing policy bounds.
	ContactMinTurns          int
	ContactMaxTurns          int
	ContactEngagementWordMin int

	// FAQ/knowledge similarity threshold is a tunable business parameter.
	FAQMatchThreshold   float64
	KnowledgeTopK       int
	ContextWindowSize   int
	CalendarDaysAhead   int
	ResponseCacheTTL    time.Duration
	BookingEmailEnabled bool
	BookingFromEmail    string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		CalendlyToken:        getEnv("CALENDLY_TOKEN", ""),
		CalendlyEventTypeURI: getEnv("CALENDLY_EVENT_TYPE_URI", ""),

		ChatAPIKeys: getEnv("CHAT_API_KEYS", ""),

		OrgDisplayName:     getEnv("ORG_DISPLAY_NAME", "our team"),
		PersonaPrompt:      getEnv("PERSONA_PROMPT", ""),
		LeadCaptureEnabled: getEnvAsBool("LEAD_CAPTURE_ENABLED", true),

		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
		CalendarTimeout:   getEnvAsDuration("CALENDAR_TIMEOUT", 10*time.Second),

		ContactMinTurns:          getEnvAsInt("CONTACT_MIN_TURNS", 3),
		ContactMaxTurns:          getEnvAsInt("CONTACT_MAX_TURNS", 10),
		ContactEngagementWordMin: getEnvAsInt("CONTACT_ENGAGEMENT_WORD_MIN", 3),

		FAQMatchThreshold:   getEnvAsFloat("FAQ_MATCH_THRESHOLD", 0.65),
		KnowledgeTopK:       getEnvAsInt("KNOWLEDGE_TOP_K", 3),
		ContextWindowSize:   getEnvAsInt("CONTEXT_WINDOW_SIZE", 10),
		CalendarDaysAhead:   getEnvAsInt("CALENDAR_DAYS_AHEAD", 7),
		ResponseCacheTTL:    getEnvAsDuration("RESPONSE_CACHE_TTL", 0),
		BookingEmailEnabled: getEnvAsBool("BOOKING_EMAIL_ENABLED", false),
		BookingFromEmail:    getEnv("BOOKING_FROM_EMAIL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
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
