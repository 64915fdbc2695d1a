package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	APIPort string

	LogLevel  string
	LogFormat string

	MaxConcurrentJobs int
	RepoConcurrency   int
	FileConcurrency   int
	DispatchInterval  time.Duration
	JobTimeout        time.Duration // 0 disables the per-job deadline
	JobRetention      time.Duration
	CleanupThreshold  int
	ShutdownTimeout   time.Duration

	GitHubAPIURL            string
	GitHubHTTPTimeout       time.Duration // 0 keeps the transport default
	GitHubRequestsPerSecond float64       // <= 0 disables pacing
	GitHubBurst             int

	RedisAddr       string // Empty disables the summary cache
	RedisPassword   string
	RedisDB         int
	SummaryCacheTTL time.Duration

	SendGridAPIKey  string // Empty disables report mails
	ReportFromEmail string

	SourceExtensions []string // Empty keeps the built-in allow-list
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables")
	}

	AppConfig = FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		APIPort:   getEnv("API_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MaxConcurrentJobs: getEnvAsInt("MAX_CONCURRENT_JOBS", 2),
		RepoConcurrency:   getEnvAsInt("REPO_CONCURRENCY", 3),
		FileConcurrency:   getEnvAsInt("FILE_CONCURRENCY", 5),
		DispatchInterval:  getEnvAsDuration("DISPATCH_INTERVAL", time.Second),
		JobTimeout:        getEnvAsDuration("JOB_TIMEOUT", 0),
		JobRetention:      getEnvAsDuration("JOB_RETENTION", 24*time.Hour),
		CleanupThreshold:  getEnvAsInt("CLEANUP_THRESHOLD", 1000),
		ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		GitHubAPIURL:            getEnv("GITHUB_API_URL", ""),
		GitHubHTTPTimeout:       getEnvAsDuration("GITHUB_HTTP_TIMEOUT", 0),
		GitHubRequestsPerSecond: getEnvAsFloat("GITHUB_REQUESTS_PER_SECOND", 10),
		GitHubBurst:             getEnvAsInt("GITHUB_BURST", 10),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		SummaryCacheTTL: getEnvAsDuration("SUMMARY_CACHE_TTL", 24*time.Hour),

		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		ReportFromEmail: getEnv("REPORT_FROM_EMAIL", ""),

		SourceExtensions: getEnvAsList("SOURCE_EXTENSIONS"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
