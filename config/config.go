package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	DBDriver   string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	SQLitePath string

	RedisAddr     string
	RedisPort     string
	RedisPassword string

	// Background work
	QueueBackend      string
	QueueKey          string
	WorkerCount       int
	QueueSize         int
	AssessmentTimeout time.Duration
	ReportTimeout     time.Duration
	StallThreshold    time.Duration
	SweepSchedule     string

	// OpenAI-compatible provider
	AIAPIKey          string
	AIBaseURL         string
	AIAssessmentModel string
	AIReportModel     string
	AITemperature     float32

	JWTSecret   string
	CORSOrigins []string

	// Log configuration
	LogLevel      string
	LogFilename   string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c *Config) RedisFullAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisAddr, c.RedisPort)
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		// Ignore error if .env file is not found
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),
		SQLitePath: getEnv("SQLITE_PATH", "clawctor.db"),

		RedisAddr:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		QueueBackend:      getEnv("QUEUE_BACKEND", "memory"),
		QueueKey:          getEnv("QUEUE_KEY", "clawctor:jobs"),
		WorkerCount:       getEnvAsInt("WORKER_COUNT", 4),
		QueueSize:         getEnvAsInt("QUEUE_SIZE", 100),
		AssessmentTimeout: getEnvAsDuration("ASSESSMENT_TIMEOUT", 2*time.Minute),
		ReportTimeout:     getEnvAsDuration("REPORT_TIMEOUT", 3*time.Minute),
		StallThreshold:    getEnvAsDuration("STALL_THRESHOLD", 15*time.Minute),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "@every 1m"),

		AIAPIKey:          os.Getenv("AI_API_KEY"),
		AIBaseURL:         getEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		AIAssessmentModel: getEnv("AI_ASSESSMENT_MODEL", "gemini-2.5-flash"),
		AIReportModel:     getEnv("AI_REPORT_MODEL", "gemini-2.5-pro"),
		AITemperature:     float32(getEnvAsFloat("AI_TEMPERATURE", 0.2)),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),

		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogFilename:   getEnv("LOG_FILENAME", "logs/app.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.QueueBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported QUEUE_BACKEND %q", c.QueueBackend)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	longest := c.AssessmentTimeout
	if c.ReportTimeout > longest {
		longest = c.ReportTimeout
	}
	// The sweeper must never race a worker that is still inside its timeout.
	if c.StallThreshold <= longest {
		return fmt.Errorf("STALL_THRESHOLD (%s) must exceed the longest job timeout (%s)", c.StallThreshold, longest)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
