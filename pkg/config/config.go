package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	JWTSecret string

	GoogleClientID      string
	GoogleClientSecret  string
	GoogleTokenURL      string
	GmailAPIBaseURL     string
	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string
	FirebaseCredentials string

	SyncInterval       time.Duration
	SyncStaleAfter     time.Duration
	ProviderTimeout    time.Duration
	SyncFirstRunWindow time.Duration
	SyncPageSize       int64
	SyncProcessingCap  int
	LedgerTimezone     string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "mailledger"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleTokenURL:      getEnv("GOOGLE_TOKEN_URL", ""),
		GmailAPIBaseURL:     getEnv("GMAIL_API_BASE_URL", ""),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", ""),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		SyncInterval:       getDuration("SYNC_INTERVAL", 15*time.Minute),
		SyncStaleAfter:     getDuration("SYNC_STALE_AFTER", 10*time.Minute),
		ProviderTimeout:    getDuration("PROVIDER_TIMEOUT", 20*time.Second),
		SyncFirstRunWindow: getDuration("SYNC_FIRST_RUN_WINDOW", 30*24*time.Hour),
		SyncPageSize:       int64(getInt("SYNC_PAGE_SIZE", 50)),
		SyncProcessingCap:  getInt("SYNC_PROCESSING_CAP", 30),
		LedgerTimezone:     getEnv("LEDGER_TIMEZONE", "UTC"),
	}
}

// DSN returns the Postgres connection string, preferring DATABASE_URL
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Location resolves LedgerTimezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LedgerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
