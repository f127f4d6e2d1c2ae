package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends accepted by SCRAPER_BACKEND.
const (
	BackendBrowser = "browser"
	BackendCrawler = "crawler"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	DBDriver         string
	AtomicReplace    bool

	SiteBaseURL     string
	SiteListingPath string

	Backend        string
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	MaxPages       int
	FetchTimeout   time.Duration
	ChromeBin      string

	RemoveOutliers bool

	CSVOutputPath string
	LogLevel      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "scraper"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		DBDriver:         getEnv("DB_DRIVER", "postgres"),
		AtomicReplace:    getEnvBool("ATOMIC_REPLACE", true),

		SiteBaseURL:     strings.TrimRight(getEnv("SITE_BASE_URL", "https://www.zonaprop.com.ar"), "/"),
		SiteListingPath: getEnv("SITE_LISTING_PATH", "/departamentos-alquiler-nueva-cordoba"),

		Backend:        strings.ToLower(getEnv("SCRAPER_BACKEND", BackendCrawler)),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		MaxPages:       getEnvInt("MAX_PAGES", 0),
		FetchTimeout:   time.Duration(getEnvPositiveInt("FETCH_TIMEOUT_SEC", 60)) * time.Second,
		ChromeBin:      getEnv("CHROME_BIN", ""),

		RemoveOutliers: getEnvBool("REMOVE_OUTLIERS", false),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/raw_rentals.csv"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
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
	if val, ok := os.LookupEnv(key); ok {
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

// getEnvPositiveInt is getEnvInt with zero and negative values replaced by fallback.
func getEnvPositiveInt(key string, fallback int) int {
	if n := getEnvInt(key, fallback); n > 0 {
		return n
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
