package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// RabbitURL and RedisAddr are optional; empty disables the component.
	RabbitURL string
	RedisAddr string

	TickPeriod            time.Duration
	BatchSize             int
	IntentExpiry          time.Duration
	PerIntentTimeout      time.Duration
	MaxAttempts           int
	SweeperPeriod         time.Duration
	WaitEstimatePerIntent time.Duration
	StatsCacheTTL         time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "ticketing_db"),

		RabbitURL: os.Getenv("RABBITMQ_URL"),
		RedisAddr: os.Getenv("REDIS_ADDR"),

		TickPeriod:            getDuration("QUEUE_TICK_PERIOD", 2*time.Second),
		BatchSize:             getInt("QUEUE_BATCH_SIZE", 5),
		IntentExpiry:          getDuration("INTENT_EXPIRY", 30*time.Minute),
		PerIntentTimeout:      getDuration("PER_INTENT_TIMEOUT", 30*time.Second),
		MaxAttempts:           getInt("MAX_ATTEMPTS", 3),
		SweeperPeriod:         getDuration("SWEEPER_PERIOD", 5*time.Minute),
		WaitEstimatePerIntent: getDuration("WAIT_ESTIMATE_PER_INTENT", 30*time.Second),
		StatsCacheTTL:         getDuration("STATS_CACHE_TTL", 2*time.Second),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}
