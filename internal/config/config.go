package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Generation tone and voice options exposed on the settings surface.
const (
	ToneProfessional   = "Professional"
	ToneConversational = "Conversational"
	ToneTechnical      = "Technical"
	ToneFriendly       = "Friendly"

	VoiceSecondPerson = "Second Person"
	VoiceThirdPerson  = "Third Person"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	UseMemoryQueue bool
	WorkerCount    int

	DatabaseURL string

	// Submission metadata backend: "postgres" or "dynamodb".
	MetaBackend         string
	SubmissionMetaTable string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	GenerationQueueURL  string

	// Text-generation provider: "bedrock", "gemini", "none" or "auto".
	AIProvider     string
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string

	AITemperature            float64
	AITone                   string
	AIVoice                  string
	AIMaxTokens              int
	AIAdditionalInstructions string

	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	RenderCacheTTL time.Duration

	FormsAPIBaseURL string
	FormsAPIKey     string

	// Notification email: "sendgrid", "ses" or "none".
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string

	CRMAPIBaseURL     string
	CRMAPIKey         string
	CRMReadyTagSlug   string
	CRMPendingTagSlug string
	CRMEmailField     string
	CRMFirstNameField string
	CRMLastNameField  string
	ReportPageURL     string

	AdminJWTSecret  string
	EntryHashSecret string

	CORSAllowedOrigins []string

	// Webhook rate limiting, requests/sec per IP. Zero disables it.
	WebhookRateLimit float64
	WebhookBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		MetaBackend:         strings.ToLower(strings.TrimSpace(getEnv("META_BACKEND", "postgres"))),
		SubmissionMetaTable: getEnv("SUBMISSION_META_TABLE", "submission_meta"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		GenerationQueueURL:  getEnv("GENERATION_QUEUE_URL", ""),

		AIProvider:     strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "auto"))),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", ""),

		AITemperature:            clampFloat(getEnvAsFloat("AI_TEMPERATURE", 0.7), 0.0, 1.0),
		AITone:                   normalizeTone(getEnv("AI_TONE", ToneProfessional)),
		AIVoice:                  normalizeVoice(getEnv("AI_VOICE", VoiceSecondPerson)),
		AIMaxTokens:              clampInt(getEnvAsInt("AI_MAX_TOKENS", 500), 100, 2000),
		AIAdditionalInstructions: getEnv("AI_ADDITIONAL_INSTRUCTIONS", ""),

		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		RenderCacheTTL: getEnvAsDuration("RENDER_CACHE_TTL", time.Hour),

		FormsAPIBaseURL: getEnv("FORMS_API_BASE_URL", ""),
		FormsAPIKey:     getEnv("FORMS_API_KEY", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Assessment Reports"),

		CRMAPIBaseURL:     getEnv("CRM_API_BASE_URL", ""),
		CRMAPIKey:         getEnv("CRM_API_KEY", ""),
		CRMReadyTagSlug:   getEnv("CRM_READY_TAG_SLUG", "ar-ai-report-ready"),
		CRMPendingTagSlug: getEnv("CRM_PENDING_TAG_SLUG", ""),
		CRMEmailField:     getEnv("CRM_EMAIL_FIELD", ""),
		CRMFirstNameField: getEnv("CRM_FIRST_NAME_FIELD", ""),
		CRMLastNameField:  getEnv("CRM_LAST_NAME_FIELD", ""),
		ReportPageURL:     getEnv("REPORT_PAGE_URL", ""),

		AdminJWTSecret:  getEnv("ADMIN_JWT_SECRET", ""),
		EntryHashSecret: getEnv("ENTRY_HASH_SECRET", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		WebhookRateLimit: getEnvAsFloat("WEBHOOK_RATE_LIMIT", 0),
		WebhookBurst:     getEnvAsInt("WEBHOOK_BURST", 10),
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
	valueStr := getEnv(key, "")
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

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func normalizeTone(tone string) string {
	switch strings.TrimSpace(tone) {
	case ToneProfessional, ToneConversational, ToneTechnical, ToneFriendly:
		return strings.TrimSpace(tone)
	}
	return ToneProfessional
}

func normalizeVoice(voice string) string {
	switch strings.TrimSpace(voice) {
	case VoiceSecondPerson, VoiceThirdPerson:
		return strings.TrimSpace(voice)
	}
	return VoiceSecondPerson
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
