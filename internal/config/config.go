package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration shared by every binary. Each
// binary reads only the fields it needs.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Transport client
	APIBaseURL       string
	RequestTimeout   time.Duration
	RequestRetries   int
	RequestBackoff   time.Duration
	RegisterPolicy   string
	HospitalFallback bool

	// Persistence
	StoreBackend   string
	StatePath      string
	StoreNamespace string
	LogPath        string

	// CORS proxy
	UpstreamBaseURL    string
	ProxyPrefix        string
	UpstreamTimeout    time.Duration
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Reference backend
	DatabaseURL    string
	JWTSecret      string
	JWTTTL         time.Duration
	LLMProvider    string
	LLMModelID     string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	HospitalOrigin string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	DynamoTable         string
	S3Bucket            string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURL:       getEnv("API_BASE_URL", "http://localhost:8080/api"),
		RequestTimeout:   getEnvAsDuration("REQUEST_TIMEOUT", 100*time.Second),
		RequestRetries:   getEnvAsInt("REQUEST_RETRIES", 0),
		RequestBackoff:   getEnvAsDuration("REQUEST_BACKOFF", 250*time.Millisecond),
		RegisterPolicy:   strings.ToLower(strings.TrimSpace(getEnv("REGISTER_POLICY", "return_to_login"))),
		HospitalFallback: getEnvAsBool("HOSPITAL_FALLBACK", false),

		StoreBackend:   strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", "file"))),
		StatePath:      getEnv("STATE_PATH", defaultStatePath()),
		StoreNamespace: getEnv("STORE_NAMESPACE", "medassist"),
		LogPath:        getEnv("LOG_PATH", ""),

		UpstreamBaseURL:    getEnv("UPSTREAM_BASE_URL", "http://103.194.106.195:8000"),
		ProxyPrefix:        getEnv("PROXY_PREFIX", "/api"),
		UpstreamTimeout:    getEnvAsDuration("UPSTREAM_TIMEOUT", 100*time.Second),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTTTL:         getEnvAsDuration("JWT_TTL", 24*time.Hour),
		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "rules"))),
		LLMModelID:     getEnv("LLM_MODEL_ID", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		HospitalOrigin: getEnv("HOSPITAL_ORIGIN", "22.3193,114.1694"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		DynamoTable:         getEnv("DYNAMO_TABLE", "medassist_state"),
		S3Bucket:            getEnv("S3_BUCKET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

func defaultStatePath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return dir + string(os.PathSeparator) + "medassist" + string(os.PathSeparator) + "state.json"
	}
	return "medassist-state.json"
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
