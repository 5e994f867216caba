package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	OTP    OTPConfig
}

type ServerConfig struct {
	HTTPPort       string
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QuizTTL  time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

// Access codes are stored in a varchar(16) column and shorter than four digits
// they are trivially guessable.
const (
	minCodeLength = 4
	maxCodeLength = 16
)

// OTPConfig schedules are cron specs; an empty spec leaves the job to an
// external trigger through the admin endpoints.
type OTPConfig struct {
	CodeLength    int
	SweepSchedule string
	PurgeSchedule string
}

// Load reads .env when present and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	return &Config{
		Server: ServerConfig{
			HTTPPort:       getEnv("HTTP_PORT", "8080"),
			AllowedOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "quizgate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			QuizTTL:  time.Duration(getEnvAsInt("QUIZ_CACHE_TTL_MINUTES", 30)) * time.Minute,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		OTP: OTPConfig{
			CodeLength:    clamp(getEnvAsInt("OTP_CODE_LENGTH", 6), minCodeLength, maxCodeLength),
			SweepSchedule: getEnv("OTP_SWEEP_CRON", ""),
			PurgeSchedule: getEnv("OTP_PURGE_CRON", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func clamp(value, lo, hi int) int {
	if value < lo {
		log.Printf("Warning: %d raised to %d", value, lo)
		return lo
	}
	if value > hi {
		log.Printf("Warning: %d lowered to %d", value, hi)
		return hi
	}
	return value
}
