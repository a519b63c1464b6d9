package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// Every tunable is explicit here and injected into the components that need
// it; nothing reads the environment after startup.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Crawler
	StartURL    string
	MaxItems    int
	RateLimitMs int
	MaxRetries  int
	ChromeBin   string

	// Scheduler
	MaxConcurrency  int
	BatchSize       int
	PollIntervalSec int

	// Bargain rule
	BuyerPremiumRate  float64
	DiscountThreshold float64

	// Capabilities
	OpenAIAPIKey    string
	OpenAIModel     string
	SearchAPIKey    string
	SearchEngineID  string
	FetchTimeoutSec int

	ListenAddr string
	Debug      bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "sniper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "sniper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "auction_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		StartURL:    getEnv("START_URL", ""),
		MaxItems:    getEnvInt("MAX_ITEMS", 1000),
		RateLimitMs: getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:  getEnvInt("MAX_RETRIES", 3),
		ChromeBin:   getEnv("CHROME_BIN", ""),

		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 5),
		BatchSize:       getEnvInt("BATCH_SIZE", 5),
		PollIntervalSec: getEnvInt("POLL_INTERVAL_SEC", 10),

		BuyerPremiumRate:  getEnvFloat("BUYER_PREMIUM_RATE", 0.30),
		DiscountThreshold: getEnvFloat("DISCOUNT_THRESHOLD", 0.30),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		SearchAPIKey:    getEnv("SEARCH_API_KEY", ""),
		SearchEngineID:  getEnv("SEARCH_ENGINE_ID", ""),
		FetchTimeoutSec: getEnvInt("FETCH_TIMEOUT_SEC", 10),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		Debug:      getEnvBool("DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
