package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port    string
	LogMode string

	DBDriver   string // postgres, sqlite
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	SQLitePath string

	JWTKey      string
	JWTTTLHours int
	SaltRound   int

	// AdminSignupKey lets the first admin register before any admin exists.
	AdminSignupKey string

	ReconcileCron string

	PaymentVerifyURL string
	PaymentVerifyKey string

	SendgridAPIKey    string
	SendgridFromEmail string

	HTTPTimeoutSeconds int
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:    getEnv("PORT", "3000"),
		LogMode: getEnv("LOG_MODE", "dev"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "coursehub"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "coursehub.db"),

		JWTKey:      getEnv("JWT_SECRET_KEY", "defaultSecret"),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24*7),
		SaltRound:   getEnvInt("SALT_ROUND", 10),

		AdminSignupKey: getEnv("ADMIN_SIGNUP_KEY", ""),

		ReconcileCron: getEnv("RECONCILE_CRON", "0 3 * * *"),

		PaymentVerifyURL: getEnv("PAYMENT_VERIFY_URL", ""),
		PaymentVerifyKey: getEnv("PAYMENT_VERIFY_KEY", ""),

		SendgridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendgridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),

		HTTPTimeoutSeconds: getEnvInt("HTTP_TIMEOUT_SECONDS", 10),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.DBDriver != "postgres" && AppConfig.DBDriver != "sqlite" {
		log.Printf("Warning: unknown DB_DRIVER %q, falling back to postgres.", AppConfig.DBDriver)
		AppConfig.DBDriver = "postgres"
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
