package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	App      AppConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql or postgres
	URL      string // full DSN, wins over the discrete fields
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	TimeZone string
	LogSQL   bool
}

// AppConfig holds application configuration
type AppConfig struct {
	Name            string
	Port            string
	JWTSecret       string
	CORSOrigins     string
	RestorePolicy   string  // available or legacy
	LoginRatePerSec float64 // login attempts per second per IP
	LoginBurst      int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	driver := getEnv("DB_DRIVER", "mysql")
	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:   driver,
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", defaultPort),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "siops"),
			TimeZone: getEnv("DB_TIMEZONE", "Asia/Jakarta"),
			LogSQL:   getEnvBool("DB_LOG_SQL", true),
		},
		App: AppConfig{
			Name:            getEnv("APP_NAME", "SIOPS API v1.0"),
			Port:            getEnv("PORT", "3000"),
			JWTSecret:       getEnv("JWT_SECRET", ""),
			CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
			RestorePolicy:   getEnv("RESTORE_POLICY", "available"),
			LoginRatePerSec: getEnvFloat("LOGIN_RATE_PER_SEC", 1),
			LoginBurst:      getEnvInt("LOGIN_RATE_BURST", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}
