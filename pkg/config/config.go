package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	OpenAI    OpenAIConfig
	Chat      ChatConfig
	OTEL      OTELConfig
	CORS      CORSConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host     string
	Port     int
	Env      string
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	Enabled bool
	URL     string
	APIKey  string
}

// OpenAIConfig holds the generative backend configuration
type OpenAIConfig struct {
	APIKey           string
	Model            string
	BaseURL          string
	Temperature      float64
	MaxTokens        int
	FrequencyPenalty float64
	RateLimitRPM     int
	RateLimitBurst   int
	Timeout          time.Duration
}

// Session store drivers
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// ChatConfig holds the conversational router settings
type ChatConfig struct {
	// SessionTimeout is both the idle lifetime of a session and the period of
	// the background sweep.
	SessionTimeout time.Duration
	// SweepEvery triggers an inline sweep on every Nth session creation.
	SweepEvery int
	// HistoryWindow is how many trailing turns are sent to the generative backend.
	HistoryWindow int
	SearchLimit   int
	SessionStore  string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// CORSConfig holds allowed origins for browser clients
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			Port:     getEnvAsInt("SERVER_PORT", 5000),
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "medicapp"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		OpenAI: OpenAIConfig{
			APIKey:           getEnv("OPENAI_API_KEY", ""),
			Model:            getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			BaseURL:          getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:      getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
			MaxTokens:        getEnvAsInt("OPENAI_MAX_TOKENS", 150),
			FrequencyPenalty: getEnvAsFloat("OPENAI_FREQUENCY_PENALTY", 0.5),
			RateLimitRPM:     getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst:   getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
			Timeout:          getEnvAsDuration("OPENAI_TIMEOUT", 20*time.Second),
		},
		Chat: ChatConfig{
			SessionTimeout: getEnvAsDuration("CHAT_SESSION_TIMEOUT", time.Hour),
			SweepEvery:     getEnvAsInt("CHAT_SWEEP_EVERY", 10),
			HistoryWindow:  getEnvAsInt("CHAT_HISTORY_WINDOW", 6),
			SearchLimit:    getEnvAsInt("CHAT_SEARCH_LIMIT", 5),
			SessionStore:   getEnv("CHAT_SESSION_STORE", SessionStoreMemory),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "medicapp-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the chat router cannot run with
func (c *Config) Validate() error {
	if c.Chat.SessionTimeout <= 0 {
		return fmt.Errorf("CHAT_SESSION_TIMEOUT must be positive, got %s", c.Chat.SessionTimeout)
	}
	if c.Chat.SweepEvery <= 0 {
		return fmt.Errorf("CHAT_SWEEP_EVERY must be positive, got %d", c.Chat.SweepEvery)
	}
	if c.Chat.HistoryWindow <= 0 {
		return fmt.Errorf("CHAT_HISTORY_WINDOW must be positive, got %d", c.Chat.HistoryWindow)
	}
	if c.Chat.SearchLimit <= 0 {
		return fmt.Errorf("CHAT_SEARCH_LIMIT must be positive, got %d", c.Chat.SearchLimit)
	}
	switch c.Chat.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("CHAT_SESSION_STORE=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("unknown CHAT_SESSION_STORE %q", c.Chat.SessionStore)
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
