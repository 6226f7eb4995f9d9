package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// NLU (text-completion) configuration
	NLUProvider    string
	GeminiAPIKey   string
	GeminiModelID  string
	BedrockModelID string
	NLUTimeout     time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Calendar configuration
	CalendarProvider       string
	GoogleCalendarID       string
	GoogleCredentialsPath  string
	CalendarTimezone       string
	WorkingHoursStart      int
	WorkingHoursEnd        int
	SlotStepMinutes        int
	DefaultDurationMinutes int
	MaxSlots               int
	MaxOfferedSlots        int

	// Session storage
	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	DatabaseURL    string
	AdminJWTSecret string

	// Booking confirmation email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESConfigSet      string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		NLUProvider:    strings.ToLower(strings.TrimSpace(getEnv("NLU_PROVIDER", "auto"))),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		NLUTimeout:     getEnvAsDuration("NLU_TIMEOUT", 15*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CalendarProvider:       strings.ToLower(strings.TrimSpace(getEnv("CALENDAR_PROVIDER", "auto"))),
		GoogleCalendarID:       getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GoogleCredentialsPath:  getEnv("GOOGLE_CALENDAR_CREDENTIALS_PATH", ""),
		CalendarTimezone:       getEnv("CALENDAR_TIMEZONE", "UTC"),
		WorkingHoursStart:      getEnvAsInt("WORKING_HOURS_START", 9),
		WorkingHoursEnd:        getEnvAsInt("WORKING_HOURS_END", 17),
		SlotStepMinutes:        getEnvAsInt("SLOT_STEP_MINUTES", 30),
		DefaultDurationMinutes: getEnvAsInt("DEFAULT_DURATION_MINUTES", 60),
		MaxSlots:               getEnvAsInt("MAX_SLOTS", 5),
		MaxOfferedSlots:        getEnvAsInt("MAX_OFFERED_SLOTS", 3),

		SessionStore:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Calendar Agent"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESConfigSet:      getEnv("SES_CONFIGURATION_SET", ""),
	}
	cfg.NLUProvider = cfg.resolveNLUProvider()
	cfg.CalendarProvider = cfg.resolveCalendarProvider()
	cfg.EmailProvider = cfg.resolveEmailProvider()
	return cfg
}

// resolveNLUProvider turns "auto" into a concrete provider based on which credentials are present.
func (c *Config) resolveNLUProvider() string {
	switch c.NLUProvider {
	case "gemini", "bedrock", "none":
		return c.NLUProvider
	}
	if strings.TrimSpace(c.GeminiAPIKey) != "" {
		return "gemini"
	}
	if strings.TrimSpace(c.BedrockModelID) != "" {
		return "bedrock"
	}
	return "none"
}

func (c *Config) resolveCalendarProvider() string {
	switch c.CalendarProvider {
	case "google", "simulated":
		return c.CalendarProvider
	}
	if strings.TrimSpace(c.GoogleCredentialsPath) != "" {
		return "google"
	}
	return "simulated"
}

func (c *Config) resolveEmailProvider() string {
	switch c.EmailProvider {
	case "sendgrid", "ses", "stub":
		return c.EmailProvider
	}
	if strings.TrimSpace(c.SendGridAPIKey) != "" {
		return "sendgrid"
	}
	if strings.TrimSpace(c.SESFromEmail) != "" {
		return "ses"
	}
	return "stub"
}

// NeedsAWS reports whether any AWS-backed component is enabled.
func (c *Config) NeedsAWS() bool {
	return c.NLUProvider == "bedrock" || c.EmailProvider == "ses"
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
