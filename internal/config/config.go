package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Appointment store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreS3       = "s3"
)

// LLM providers.
const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	LLMProvider      string
	GeminiAPIKey     string
	GeminiModelID    string
	BedrockModelID   string
	ModelTimeout     time.Duration
	ModelMaxTokens   int
	ModelTemperature float64
	MaxToolRounds    int
	MaxHistory       int
	StrictGPNames    bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	AppointmentStore    string
	AppointmentStoreKey string
	DynamoDBTable       string
	S3Bucket            string
	DatabaseURL         string
	SessionStore        string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LLMProvider:      strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", ProviderGemini))),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),
		ModelTimeout:     getEnvAsDuration("MODEL_TIMEOUT", 30*time.Second),
		ModelMaxTokens:   getEnvAsInt("MODEL_MAX_TOKENS", 1024),
		ModelTemperature: getEnvAsFloat("MODEL_TEMPERATURE", 0.3),
		MaxToolRounds:    getEnvAsInt("MAX_TOOL_ROUNDS", 8),
		MaxHistory:       getEnvAsInt("MAX_HISTORY_MESSAGES", 24),
		StrictGPNames:    getEnvAsBool("STRICT_GP_RESOLUTION", false),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AppointmentStore:    strings.ToLower(strings.TrimSpace(getEnv("APPOINTMENT_STORE", StoreMemory))),
		AppointmentStoreKey: getEnv("APPOINTMENT_STORE_KEY", "healthy_life_appointments"),
		DynamoDBTable:       getEnv("DYNAMODB_TABLE", "healthylife_appointments"),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		SessionStore:        strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", StoreMemory))),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 5),
	}
}

// Validate reports configuration combinations that cannot start.
func (c *Config) Validate() error {
	var errs []error

	switch c.AppointmentStore {
	case StoreMemory, StoreRedis:
	case StoreDynamoDB:
		if strings.TrimSpace(c.DynamoDBTable) == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE is required for the dynamodb store"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreS3:
		if strings.TrimSpace(c.S3Bucket) == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown APPOINTMENT_STORE %q", c.AppointmentStore))
	}

	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}

	switch c.LLMProvider {
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case ProviderBedrock:
		if strings.TrimSpace(c.BedrockModelID) == "" {
			errs = append(errs, errors.New("BEDROCK_MODEL_ID is required for the bedrock provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	if c.MaxToolRounds <= 0 {
		errs = append(errs, errors.New("MAX_TOOL_ROUNDS must be positive"))
	}
	if c.MaxHistory < 0 {
		errs = append(errs, errors.New("MAX_HISTORY_MESSAGES cannot be negative"))
	}
	if c.ModelTimeout <= 0 {
		errs = append(errs, errors.New("MODEL_TIMEOUT must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
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
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
