package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything the alert engine reads from the environment.
type AppConfig struct {
	Port     string
	LogLevel string

	// OpenWeatherMap key for the current-conditions lookup.
	OpenWeatherAPIKey string

	// HTTPTimeout bounds outbound collaborator calls (weather provider,
	// suburb reference service).
	HTTPTimeout time.Duration

	// ResolveRadiusKm is the maximum centroid distance for matching a
	// location report to a suburb.
	ResolveRadiusKm float64

	// Suburb reference data: remote URL takes precedence, seed file serves
	// development and the initial snapshot.
	SuburbSourceURL    string
	SuburbSeedFile     string
	SuburbSyncInterval time.Duration

	// DBPath selects the SQLite store; empty keeps everything in memory.
	DBPath string

	// Kafka sink for match decisions; no brokers means the log dispatcher.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.ResolveRadiusKm = getenvFloat("RESOLVE_RADIUS_KM", 5.0)

	cfg.SuburbSourceURL = os.Getenv("SUBURB_SOURCE_URL")
	cfg.SuburbSeedFile = getenvDefault("SUBURB_SEED_FILE", "suburbs.json")

	syncStr := getenvDefault("SUBURB_SYNC_INTERVAL", "24h")
	sync, err := time.ParseDuration(syncStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SUBURB_SYNC_INTERVAL: %w", err)
	}
	cfg.SuburbSyncInterval = sync

	cfg.DBPath = os.Getenv("DB_PATH")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.KafkaTopic = getenvDefault("KAFKA_TOPIC", "alert-matches")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
