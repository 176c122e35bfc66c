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
	LogLevel      string
	PublicSiteURL string

	// Identity provider (sign-in widget)
	GoogleClientID          string
	GoogleVerifyCredentials bool
	IdentityTimeout         time.Duration

	// Funnel / feedback timing
	LocationAdvanceDelay time.Duration
	CompleteCountdown    time.Duration
	FeedbackCountdown    time.Duration
	AdminWindowLimit     int
	DisplayTimezone      string
	LocationsJSON        string

	// Record store
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	PrefillCacheTTL time.Duration

	// HTTP surface
	CORSAllowedOrigins []string
	FeedbackRateLimit  float64
	FeedbackRateBurst  int

	// Alert e-mail
	EmailProvider     string
	AlertEmailTo      string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicSiteURL: getEnv("PUBLIC_SITE_URL", "https://www.cleaningprofessionals.com.au/"),

		GoogleClientID:          strings.TrimSpace(getEnv("GOOGLE_CLIENT_ID", "")),
		GoogleVerifyCredentials: getEnvAsBool("GOOGLE_VERIFY_CREDENTIALS", false),
		IdentityTimeout:         clampDuration(getEnvAsDuration("IDENTITY_TIMEOUT", 10*time.Second), 3*time.Second, 10*time.Second),

		LocationAdvanceDelay: getEnvAsDuration("LOCATION_ADVANCE_DELAY", 1500*time.Millisecond),
		CompleteCountdown:    getEnvAsDuration("COMPLETE_COUNTDOWN", 10*time.Second),
		FeedbackCountdown:    getEnvAsDuration("FEEDBACK_COUNTDOWN", 5*time.Second),
		AdminWindowLimit:     getEnvAsInt("ADMIN_WINDOW_LIMIT", 50),
		DisplayTimezone:      getEnv("DISPLAY_TIMEZONE", "Australia/Melbourne"),
		LocationsJSON:        getEnv("LOCATIONS_JSON", ""),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		PrefillCacheTTL: getEnvAsDuration("PREFILL_CACHE_TTL", 15*time.Minute),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		FeedbackRateLimit:  getEnvAsFloat("FEEDBACK_RATE_LIMIT", 1),
		FeedbackRateBurst:  getEnvAsInt("FEEDBACK_RATE_BURST", 5),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		AlertEmailTo:      getEnv("ALERT_EMAIL_TO", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Cleaning Professionals"),

		AWSRegion:           getEnv("AWS_REGION", "ap-southeast-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
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

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// clampDuration keeps the sign-in fallback inside the window the widget needs.
func clampDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
